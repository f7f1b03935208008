package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

// Tab is a dashboard listing.
type Tab string

const (
	TabOpen        Tab = "open"
	TabInProgress  Tab = "in_progress"
	TabWaitLeader  Tab = "wait_leader"
	TabWaitVerify  Tab = "wait_verify"
	TabWaitApprove Tab = "wait_approve"
	TabHistory     Tab = "history"
)

var tabStatuses = map[Tab][]domain.TicketStatus{
	TabOpen:        {domain.TicketStatusOpen},
	TabInProgress:  {domain.TicketStatusInProgress, domain.TicketStatusWaitingPart},
	TabWaitLeader:  {domain.TicketStatusWaitLeader},
	TabWaitVerify:  {domain.TicketStatusWaitVerify},
	TabWaitApprove: {domain.TicketStatusWaitApprove},
	TabHistory:     {domain.TicketStatusClosed},
}

// SettingsReader resolves dropdown lists.
type SettingsReader interface {
	List(ctx context.Context, name domain.SettingsName) (*domain.SettingsList, error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	settings   SettingsReader
	dispatcher events.Dispatcher
	logger     *zap.Logger
	workflow   domain.WorkflowOptions
	loc        *time.Location
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Settings    SettingsReader
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Workflow    domain.WorkflowOptions
	// Location cuts ticket-ID months and history months. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	MachineID    string
	MachineName  string
	JobType      string
	JobTypeOther string
	Department   string
	Factory      domain.Factory
	Area         string
	AreaOther    string
	IssueItem    string
	IssueDetail  string
	ImageURL     string
}

// TicketListFilter selects a dashboard tab. Month (YYYY-MM) and Department only
// apply to the history tab.
type TicketListFilter struct {
	Tab        Tab
	Month      string
	Department string
}

// TicketView is a ticket with the flags the dashboard derives from the clock
// and the caller.
type TicketView struct {
	domain.Ticket
	Overdue bool
	Elapsed time.Duration
	Actions []domain.TicketAction
}

// TicketCounts feeds the dashboard badges.
type TicketCounts struct {
	ByStatus map[domain.TicketStatus]int
	ByTab    map[Tab]int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		settings:   deps.Settings,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		workflow:   deps.Workflow,
		loc:        deps.Location,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create files a new Open ticket under the next free ID for its department.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.CanFileTickets() {
		return nil, apperrors.NewForbidden("only requesters may file tickets")
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	code, err := s.departmentCode(ctx, input.Department)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	ticket := &domain.Ticket{
		MachineID:         input.MachineID,
		MachineName:       input.MachineName,
		JobType:           domain.WithOther(input.JobType, input.JobTypeOther),
		Department:        input.Department,
		Factory:           input.Factory,
		Area:              domain.WithOther(input.Area, input.AreaOther),
		IssueItem:         input.IssueItem,
		IssueDetail:       input.IssueDetail,
		ImageURL:          input.ImageURL,
		Status:            domain.TicketStatusOpen,
		Source:            domain.SourceManual,
		Requester:         actor.Username,
		RequesterFullname: actor.DisplayName(),
		RequesterDate:     now.Format("2006-01-02"),
		MCStatus:          domain.MachineNotStopped,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.tickets.WithinTx(ctx, func(tx repository.TicketTx) error {
		return allocateTicketID(ctx, tx, code, domain.YearMonth(now), ticket)
	})
	if err != nil {
		if errors.Is(err, errIDSpaceExhausted) || errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("could not allocate a ticket id", map[string]any{"month": domain.YearMonth(now)})
		}
		return nil, err
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("requester", actor.Username))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			Department:        ticket.Department,
			MachineName:       ticket.MachineName,
			IssueItem:         ticket.IssueItem,
			IssueDetail:       ticket.IssueDetail,
			RequesterFullname: ticket.RequesterFullname,
		},
	})
	return ticket, nil
}

func validateCreate(input *TicketCreateInput) error {
	input.MachineName = strings.TrimSpace(input.MachineName)
	input.IssueItem = strings.TrimSpace(input.IssueItem)
	input.Area = strings.TrimSpace(input.Area)
	input.Department = strings.TrimSpace(input.Department)
	input.IssueDetail = strings.TrimSpace(input.IssueDetail)
	if strings.TrimSpace(input.MachineID) == "" {
		input.MachineID = domain.ManualMachineID
	}
	if input.Factory == "" {
		input.Factory = domain.FactorySAL01
	}

	missing := []string{}
	if input.MachineName == "" {
		missing = append(missing, "machine_name")
	}
	if input.IssueItem == "" {
		missing = append(missing, "issue_item")
	}
	if input.Area == "" {
		missing = append(missing, "area")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if input.Factory != domain.FactorySAL01 && input.Factory != domain.FactorySAL02 {
		return apperrors.NewValidationError("unknown factory", map[string]any{"factory": input.Factory})
	}
	return nil
}

func (s *TicketService) departmentCode(ctx context.Context, department string) (string, error) {
	if s.settings == nil {
		return domain.DefaultDepartmentCode, nil
	}
	list, err := s.settings.List(ctx, domain.SettingsDepartments)
	if err != nil {
		if apperrors.IsCode(err, "NOT_FOUND") || errors.Is(err, repository.ErrNotFound) {
			return domain.DefaultDepartmentCode, nil
		}
		return "", err
	}
	return list.DepartmentCode(department), nil
}

// Get returns a ticket with the caller's available actions.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	view := s.view(*ticket, actor, s.now())
	return &view, nil
}

// List returns one dashboard tab sorted by department then ID.
func (s *TicketService) List(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]TicketView, error) {
	if filter.Tab == "" {
		filter.Tab = TabOpen
	}
	statuses, ok := tabStatuses[filter.Tab]
	if !ok {
		return nil, apperrors.NewValidationError("unknown tab", map[string]any{"tab": filter.Tab})
	}
	repoFilter := repository.TicketFilter{Statuses: statuses}

	if filter.Tab == TabHistory {
		from, to, err := s.monthRange(filter.Month)
		if err != nil {
			return nil, err
		}
		repoFilter.From = &from
		repoFilter.To = &to
		repoFilter.Department = strings.TrimSpace(filter.Department)
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, s.view(t, actor, now))
	}
	return views, nil
}

func (s *TicketService) monthRange(month string) (time.Time, time.Time, error) {
	var start time.Time
	if strings.TrimSpace(month) == "" {
		now := s.now().In(s.loc)
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	} else {
		parsed, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("month must be YYYY-MM", map[string]any{"month": month})
		}
		start = parsed
	}
	return start, start.AddDate(0, 1, 0), nil
}

func (s *TicketService) view(t domain.Ticket, actor *domain.User, now time.Time) TicketView {
	return TicketView{
		Ticket:  t,
		Overdue: t.ShowOverdue(now),
		Elapsed: t.Elapsed(now),
		Actions: domain.AvailableActions(&t, actor, s.workflow),
	}
}

// Counts returns per-status and per-tab totals.
func (s *TicketService) Counts(ctx context.Context) (*TicketCounts, error) {
	byStatus, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byTab := make(map[Tab]int, len(tabStatuses))
	for tab, statuses := range tabStatuses {
		if tab == TabHistory {
			continue
		}
		for _, st := range statuses {
			byTab[tab] += byStatus[st]
		}
	}
	return &TicketCounts{ByStatus: byStatus, ByTab: byTab}, nil
}

// Departments lists the departments seen on tickets, for the history filter.
func (s *TicketService) Departments(ctx context.Context) ([]string, error) {
	depts, err := s.tickets.Departments(ctx)
	if err != nil {
		return nil, err
	}
	if depts == nil {
		depts = []string{}
	}
	return depts, nil
}

// Transition applies a workflow action and its findings patch atomically.
func (s *TicketService) Transition(ctx context.Context, actor *domain.User, id string, action domain.TicketAction, findings *domain.Findings) (*TicketView, error) {
	var (
		updated   *domain.Ticket
		oldStatus domain.TicketStatus
	)
	now := s.now()
	err := s.tickets.WithinTx(ctx, func(tx repository.TicketTx) error {
		ticket, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		oldStatus, err = domain.ApplyAction(ticket, actor, action, findings, now, s.workflow)
		if err != nil {
			return workflowError(err, ticket, action)
		}
		if err := tx.Update(ctx, ticket); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, actor, updated.ID, action, oldStatus, updated.Status)
	if oldStatus != updated.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Actor:    actorOf(actor),
			Payload: events.TicketStatusChangedPayload{
				Action:    action,
				OldStatus: oldStatus,
				NewStatus: updated.Status,
			},
		})
	} else {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: updated.ID,
			Actor:    actorOf(actor),
			Payload:  events.TicketUpdatedPayload{Action: action, Status: updated.Status},
		})
	}
	view := s.view(*updated, actor, now)
	return &view, nil
}

func workflowError(err error, ticket *domain.Ticket, action domain.TicketAction) error {
	details := map[string]any{"ticket_id": ticket.ID, "status": ticket.Status, "action": action}
	switch {
	case errors.Is(err, domain.ErrUnknownAction):
		return apperrors.NewValidationError(err.Error(), details)
	case errors.Is(err, domain.ErrActionForbidden):
		return apperrors.NewForbidden(err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrWorkflowDisabled):
		return apperrors.NewConflict(err.Error(), details)
	case errors.Is(err, domain.ErrIncompleteFindings):
		details["fields"] = []string{"cause_detail", "solution", "cause_category", "maintenance_result", "start_time", "end_time"}
		return apperrors.NewValidationError(err.Error(), details)
	case errors.Is(err, domain.ErrInvalidMachineStatus):
		details["fields"] = []string{"mc_status"}
		return apperrors.NewValidationError(err.Error(), details)
	case errors.Is(err, domain.ErrDelayReasonRequired):
		details["fields"] = []string{"delay_reason"}
		return apperrors.NewValidationError(err.Error(), details)
	}
	return err
}

// Rename changes the ID of an approved ticket. History follows the ticket.
func (s *TicketService) Rename(ctx context.Context, actor *domain.User, id, newID string) (*domain.Ticket, error) {
	if !actor.IsSupervisor() {
		return nil, apperrors.NewForbidden("supervisor role required")
	}
	newID = strings.TrimSpace(newID)
	if newID == "" {
		return nil, apperrors.NewValidationError("new id required", nil)
	}
	if newID == id {
		return nil, apperrors.NewValidationError("new id equals current id", nil)
	}

	var renamed *domain.Ticket
	err := s.tickets.WithinTx(ctx, func(tx repository.TicketTx) error {
		ticket, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		if !ticket.Status.Approved() {
			return apperrors.NewConflict("only approved or closed tickets can be renamed", map[string]any{"status": ticket.Status})
		}
		taken, err := tx.Exists(ctx, newID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewConflict("ticket id already exists", map[string]any{"id": newID})
		}
		if err := tx.Rename(ctx, id, newID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("ticket id already exists", map[string]any{"id": newID})
			}
			return err
		}
		ticket.ID = newID
		renamed = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket renamed", zap.String("old_id", id), zap.String("new_id", newID), zap.String("actor", actor.Username))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketRenamed,
		TicketID: newID,
		Actor:    actorOf(actor),
		Payload:  events.TicketRenamedPayload{OldID: id, NewID: newID},
	})
	return renamed, nil
}

// Delete removes one ticket. Deleting the newest unapproved ticket of a month
// hands its sequence number back to the counter.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !actor.IsSuperAdmin() {
		return apperrors.NewForbidden("super admin required")
	}
	var rolledBack bool
	err := s.tickets.WithinTx(ctx, func(tx repository.TicketTx) error {
		ticket, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, id)
		}
		rolledBack, err = rollbackCounter(ctx, tx, ticket)
		if err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", id), zap.Bool("counter_rolled_back", rolledBack))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Actor:    actorOf(actor),
		Payload:  events.TicketDeletedPayload{CounterRolledBack: rolledBack},
	})
	return nil
}

// BatchDelete removes many tickets without touching counters.
func (s *TicketService) BatchDelete(ctx context.Context, actor *domain.User, ids []string) (int64, error) {
	if !actor.IsSuperAdmin() {
		return 0, apperrors.NewForbidden("super admin required")
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("no tickets selected", nil)
	}

	existing, err := s.tickets.GetMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	found := make([]string, 0, len(existing))
	for _, t := range existing {
		found = append(found, t.ID)
	}
	if len(found) == 0 {
		return 0, nil
	}

	n, err := s.tickets.DeleteMany(ctx, found)
	if err != nil {
		return 0, err
	}
	s.logger.Info("tickets deleted", zap.Int64("count", n), zap.String("actor", actor.Username))
	for _, id := range found {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketDeleted,
			TicketID: id,
			Actor:    actorOf(actor),
			Payload:  events.TicketDeletedPayload{},
		})
	}
	return n, nil
}

// History lists the audit trail of a ticket.
func (s *TicketService) History(ctx context.Context, id string) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, id); err != nil {
		return nil, notFound(err, id)
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

// Tickets loads the selected tickets ordered by creation time.
func (s *TicketService) Tickets(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("no tickets selected", nil)
	}
	tickets, err := s.tickets.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ids": ids})
	}
	return tickets, nil
}

func (s *TicketService) recordHistory(ctx context.Context, actor *domain.User, ticketID string, action domain.TicketAction, from, to domain.TicketStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:  ticketID,
		Action:    action,
		OldStatus: from,
		NewStatus: to,
		ActorUser: actor.Username,
		ActorName: actor.DisplayName(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("type", string(event.Type)), zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
}

func actorOf(u *domain.User) events.Actor {
	return events.Actor{Username: u.Username, Role: u.Role}
}

func notFound(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return err
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
