package dto

import (
	"time"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	MachineID    string         `json:"machine_id"`
	MachineName  string         `json:"machine_name"`
	JobType      string         `json:"job_type"`
	JobTypeOther string         `json:"job_type_other"`
	Department   string         `json:"department"`
	Factory      domain.Factory `json:"factory"`
	Area         string         `json:"area"`
	AreaOther    string         `json:"area_other"`
	IssueItem    string         `json:"issue_item"`
	IssueDetail  string         `json:"issue_detail"`
	ImageURL     string         `json:"image_url"`
}

// ActionRequest carries the optional findings patch of a workflow action.
// Absent fields are left unchanged.
type ActionRequest struct {
	CauseDetail            *string               `json:"cause_detail"`
	Solution               *string               `json:"solution"`
	Prevention             *string               `json:"prevention"`
	CauseCategory          *string               `json:"cause_category"`
	CauseCategoryOther     *string               `json:"cause_category_other"`
	MaintenanceResult      *string               `json:"maintenance_result"`
	MaintenanceResultOther *string               `json:"maintenance_result_other"`
	ResultRemark           *string               `json:"result_remark"`
	DelayReason            *string               `json:"delay_reason"`
	MCStatus               *domain.MachineStatus `json:"mc_status"`
	SpareParts             []domain.SparePart    `json:"spare_parts"`
	StartTime              *time.Time            `json:"start_time"`
	EndTime                *time.Time            `json:"end_time"`
}

// Findings converts the request into a domain patch.
func (r *ActionRequest) Findings() *domain.Findings {
	if r == nil {
		return nil
	}
	return &domain.Findings{
		CauseDetail:            r.CauseDetail,
		Solution:               r.Solution,
		Prevention:             r.Prevention,
		CauseCategory:          r.CauseCategory,
		CauseCategoryOther:     r.CauseCategoryOther,
		MaintenanceResult:      r.MaintenanceResult,
		MaintenanceResultOther: r.MaintenanceResultOther,
		ResultRemark:           r.ResultRemark,
		DelayReason:            r.DelayReason,
		MCStatus:               r.MCStatus,
		SpareParts:             r.SpareParts,
		StartTime:              r.StartTime,
		EndTime:                r.EndTime,
	}
}

// RenameTicketRequest payload.
type RenameTicketRequest struct {
	NewID string `json:"new_id"`
}

// TicketIDsRequest selects tickets for batch delete and export.
type TicketIDsRequest struct {
	IDs []string `json:"ids"`
}

// TicketResponse is the full work order plus derived dashboard flags.
type TicketResponse struct {
	ID                string              `json:"id"`
	MachineID         string              `json:"machine_id"`
	MachineName       string              `json:"machine_name"`
	JobType           string              `json:"job_type"`
	Department        string              `json:"department"`
	Factory           domain.Factory      `json:"factory"`
	Area              string              `json:"area"`
	IssueItem         string              `json:"issue_item"`
	IssueDetail       string              `json:"issue_detail"`
	ImageURL          string              `json:"image_url,omitempty"`
	Status            domain.TicketStatus `json:"status"`
	Source            string              `json:"source"`
	Requester         string              `json:"requester"`
	RequesterFullname string              `json:"requester_fullname"`
	RequesterDate     string              `json:"requester_date"`

	TechnicianID           string               `json:"technician_id,omitempty"`
	TechnicianName         string               `json:"technician_name,omitempty"`
	CauseDetail            string               `json:"cause_detail"`
	Solution               string               `json:"solution"`
	Prevention             string               `json:"prevention"`
	CauseCategory          string               `json:"cause_category"`
	CauseCategoryOther     string               `json:"cause_category_other"`
	SpareParts             []domain.SparePart   `json:"spare_parts"`
	MaintenanceResult      string               `json:"maintenance_result"`
	MaintenanceResultOther string               `json:"maintenance_result_other"`
	ResultRemark           string               `json:"result_remark"`
	DelayReason            string               `json:"delay_reason"`
	MCStatus               domain.MachineStatus `json:"mc_status"`

	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	TotalHours float64    `json:"total_hours"`

	LeaderCheckedBy string     `json:"leader_checked_by,omitempty"`
	LeaderCheckedAt *time.Time `json:"leader_checked_at,omitempty"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Overdue        bool                  `json:"overdue"`
	ElapsedMinutes int64                 `json:"elapsed_minutes"`
	Actions        []domain.TicketAction `json:"actions"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID        string              `json:"id"`
	Action    domain.TicketAction `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ActorUser string              `json:"actor_user"`
	ActorName string              `json:"actor_name"`
	CreatedAt time.Time           `json:"created_at"`
}

// TicketCountsResponse feeds the dashboard badges.
type TicketCountsResponse struct {
	ByStatus map[domain.TicketStatus]int `json:"by_status"`
	ByTab    map[string]int              `json:"by_tab"`
}

// BatchDeleteResponse reports how many tickets were removed.
type BatchDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}
