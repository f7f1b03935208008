package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// TicketFilter narrows ticket listings. From/To bound the reporting time
// (closed_at, else created_at) with To exclusive.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Department string
	From       *time.Time
	To         *time.Time
}

// Matches applies the filter to a single ticket.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Department != "" && t.Department != f.Department {
		return false
	}
	at := t.HistoryTime()
	if f.From != nil && at.Before(*f.From) {
		return false
	}
	if f.To != nil && !at.Before(*f.To) {
		return false
	}
	return true
}

// TicketTx is the unit of work for every ticket write except batch delete.
type TicketTx interface {
	// LockCounter creates the month's counter if absent and locks it until commit.
	LockCounter(ctx context.Context, yearMonth string) (int, error)
	SetCounter(ctx context.Context, yearMonth string, count int) error
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, ticket *domain.Ticket) error
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	Rename(ctx context.Context, oldID, newID string) error
	Delete(ctx context.Context, id string) error
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	Departments(ctx context.Context) ([]string, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	WithinTx(ctx context.Context, fn func(tx TicketTx) error) error
}

const ticketColumns = `id, machine_id, machine_name, job_type, department, factory, area, issue_item, issue_detail,
       image_url, status, source, requester, requester_fullname, requester_date,
       technician_id, technician_name, cause_detail, solution, prevention, cause_category, cause_category_other,
       spare_parts, maintenance_result, maintenance_result_other, result_remark, delay_reason, mc_status,
       start_time, end_time, total_hours, leader_checked_by, leader_checked_at, verified_by, verified_at,
       approved_by, approved_at, closed_at, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM maintenance_tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetMany(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM maintenance_tickets WHERE id = ANY($1) ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("COALESCE(closed_at, created_at) >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("COALESCE(closed_at, created_at) < $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM maintenance_tickets WHERE %s ORDER BY department ASC, id ASC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM maintenance_tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *ticketRepository) Departments(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT department FROM maintenance_tickets WHERE department <> '' ORDER BY department`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var dept string
		if err := rows.Scan(&dept); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}

func (r *ticketRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM maintenance_tickets WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) WithinTx(ctx context.Context, fn func(tx TicketTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgTicketTx{tx: tx})
	})
}

type pgTicketTx struct {
	tx pgx.Tx
}

func (t *pgTicketTx) LockCounter(ctx context.Context, yearMonth string) (int, error) {
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO ticket_counters (year_month, count) VALUES ($1, 0) ON CONFLICT (year_month) DO NOTHING`,
		yearMonth,
	); err != nil {
		return 0, err
	}
	var count int
	err := t.tx.QueryRow(ctx,
		`SELECT count FROM ticket_counters WHERE year_month=$1 FOR UPDATE`,
		yearMonth,
	).Scan(&count)
	return count, err
}

func (t *pgTicketTx) SetCounter(ctx context.Context, yearMonth string, count int) error {
	_, err := t.tx.Exec(ctx, `UPDATE ticket_counters SET count=$2 WHERE year_month=$1`, yearMonth, count)
	return err
}

func (t *pgTicketTx) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM maintenance_tickets WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (t *pgTicketTx) Insert(ctx context.Context, ticket *domain.Ticket) error {
	query := `INSERT INTO maintenance_tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
                $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39,$40)`
	parts, err := encodeParts(ticket.SpareParts)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, query,
		ticket.ID,
		ticket.MachineID,
		ticket.MachineName,
		ticket.JobType,
		ticket.Department,
		ticket.Factory,
		ticket.Area,
		ticket.IssueItem,
		ticket.IssueDetail,
		ticket.ImageURL,
		ticket.Status,
		ticket.Source,
		ticket.Requester,
		ticket.RequesterFullname,
		ticket.RequesterDate,
		ticket.TechnicianID,
		ticket.TechnicianName,
		ticket.CauseDetail,
		ticket.Solution,
		ticket.Prevention,
		ticket.CauseCategory,
		ticket.CauseCategoryOther,
		parts,
		ticket.MaintenanceResult,
		ticket.MaintenanceResultOther,
		ticket.ResultRemark,
		ticket.DelayReason,
		ticket.MCStatus,
		ticket.StartTime,
		ticket.EndTime,
		ticket.TotalHours,
		ticket.LeaderCheckedBy,
		ticket.LeaderCheckedAt,
		ticket.VerifiedBy,
		ticket.VerifiedAt,
		ticket.ApprovedBy,
		ticket.ApprovedAt,
		ticket.ClosedAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return mapWriteError(err)
}

func (t *pgTicketTx) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM maintenance_tickets WHERE id=$1 FOR UPDATE`
	return scanTicket(t.tx.QueryRow(ctx, query, id))
}

func (t *pgTicketTx) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE maintenance_tickets SET
            machine_id=$1, machine_name=$2, job_type=$3, department=$4, factory=$5, area=$6,
            issue_item=$7, issue_detail=$8, image_url=$9, status=$10,
            technician_id=$11, technician_name=$12, cause_detail=$13, solution=$14, prevention=$15,
            cause_category=$16, cause_category_other=$17, spare_parts=$18, maintenance_result=$19,
            maintenance_result_other=$20, result_remark=$21, delay_reason=$22, mc_status=$23,
            start_time=$24, end_time=$25, total_hours=$26, leader_checked_by=$27, leader_checked_at=$28,
            verified_by=$29, verified_at=$30, approved_by=$31, approved_at=$32, closed_at=$33, updated_at=$34
        WHERE id=$35`
	parts, err := encodeParts(ticket.SpareParts)
	if err != nil {
		return err
	}
	cmd, err := t.tx.Exec(ctx, query,
		ticket.MachineID,
		ticket.MachineName,
		ticket.JobType,
		ticket.Department,
		ticket.Factory,
		ticket.Area,
		ticket.IssueItem,
		ticket.IssueDetail,
		ticket.ImageURL,
		ticket.Status,
		ticket.TechnicianID,
		ticket.TechnicianName,
		ticket.CauseDetail,
		ticket.Solution,
		ticket.Prevention,
		ticket.CauseCategory,
		ticket.CauseCategoryOther,
		parts,
		ticket.MaintenanceResult,
		ticket.MaintenanceResultOther,
		ticket.ResultRemark,
		ticket.DelayReason,
		ticket.MCStatus,
		ticket.StartTime,
		ticket.EndTime,
		ticket.TotalHours,
		ticket.LeaderCheckedBy,
		ticket.LeaderCheckedAt,
		ticket.VerifiedBy,
		ticket.VerifiedAt,
		ticket.ApprovedBy,
		ticket.ApprovedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (t *pgTicketTx) Rename(ctx context.Context, oldID, newID string) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE maintenance_tickets SET id=$2, updated_at=NOW() WHERE id=$1`, oldID, newID)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (t *pgTicketTx) Delete(ctx context.Context, id string) error {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM maintenance_tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func encodeParts(parts []domain.SparePart) ([]byte, error) {
	if parts == nil {
		parts = []domain.SparePart{}
	}
	return json.Marshal(parts)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var parts []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.MachineID,
		&ticket.MachineName,
		&ticket.JobType,
		&ticket.Department,
		&ticket.Factory,
		&ticket.Area,
		&ticket.IssueItem,
		&ticket.IssueDetail,
		&ticket.ImageURL,
		&ticket.Status,
		&ticket.Source,
		&ticket.Requester,
		&ticket.RequesterFullname,
		&ticket.RequesterDate,
		&ticket.TechnicianID,
		&ticket.TechnicianName,
		&ticket.CauseDetail,
		&ticket.Solution,
		&ticket.Prevention,
		&ticket.CauseCategory,
		&ticket.CauseCategoryOther,
		&parts,
		&ticket.MaintenanceResult,
		&ticket.MaintenanceResultOther,
		&ticket.ResultRemark,
		&ticket.DelayReason,
		&ticket.MCStatus,
		&ticket.StartTime,
		&ticket.EndTime,
		&ticket.TotalHours,
		&ticket.LeaderCheckedBy,
		&ticket.LeaderCheckedAt,
		&ticket.VerifiedBy,
		&ticket.VerifiedAt,
		&ticket.ApprovedBy,
		&ticket.ApprovedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &ticket.SpareParts); err != nil {
			return nil, fmt.Errorf("decode spare_parts for %s: %w", ticket.ID, err)
		}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
