package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository/memstore"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

var (
	admin = &domain.User{ID: "u-admin", Username: "admin", Fullname: "Owner", Role: domain.RoleSuperAdmin}
	sup   = &domain.User{ID: "u-sup", Username: "sup1", Fullname: "Sup One", Role: domain.RoleSupervisor}
	tech  = &domain.User{ID: "u-tech", Username: "tech1", Fullname: "Tech One", Role: domain.RoleTechnician}
	req   = &domain.User{ID: "u-req", Username: "req1", Fullname: "Req One", Role: domain.RoleRequester}
)

type ticketFixture struct {
	svc    *TicketService
	store  *memstore.Store
	now    time.Time
	mu     sync.Mutex
	events []events.Event
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		store: memstore.New(),
		now:   time.Date(2025, time.May, 10, 9, 0, 0, 0, time.UTC),
	}
	settings := NewSettingsService(SettingsDependencies{Repo: f.store.Settings()})
	require.NoError(t, settings.Seed(context.Background(), map[domain.SettingsName][]domain.SettingItem{
		domain.SettingsDepartments: {{Name: "Production", Code: "prod"}, {Name: "QA"}},
	}))

	dispatcher := events.NewInMemoryDispatcher()
	events.SubscribeAll(dispatcher, func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	})

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  f.store.Tickets(),
		HistoryRepo: f.store.History(),
		Settings:    settings,
		Dispatcher:  dispatcher,
		Now:         func() time.Time { return f.now },
	})
	return f
}

func (f *ticketFixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func createInput(department string) TicketCreateInput {
	return TicketCreateInput{
		MachineName: "Press 3",
		Department:  department,
		Area:        "Extrusion",
		IssueItem:   "oil leak",
		JobType:     "เครื่องจักร",
	}
}

func (f *ticketFixture) create(t *testing.T, department string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), req, createInput(department))
	require.NoError(t, err)
	return ticket
}

func completeFindingsAt(now time.Time) *domain.Findings {
	s := func(v string) *string { return &v }
	start := now.Add(-2 * time.Hour)
	end := now.Add(-30 * time.Minute)
	return &domain.Findings{
		CauseDetail:       s("seal worn"),
		Solution:          s("replaced seal"),
		CauseCategory:     s("Broken"),
		MaintenanceResult: s("Completed"),
		StartTime:         &start,
		EndTime:           &end,
	}
}

func TestCreateAllocatesSequentialIDs(t *testing.T) {
	f := newTicketFixture(t)

	first := f.create(t, "Production")
	second := f.create(t, "Production")
	other := f.create(t, "QA")

	assert.Equal(t, "PROD-2505-001", first.ID)
	assert.Equal(t, "PROD-2505-002", second.ID)
	assert.Equal(t, "MT-2505-003", other.ID)
	assert.Equal(t, 3, f.store.Counter("2505"))

	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.Equal(t, domain.ManualMachineID, first.MachineID)
	assert.Equal(t, domain.FactorySAL01, first.Factory)
	assert.Equal(t, "Req One", first.RequesterFullname)
	assert.Equal(t, "2025-05-10", first.RequesterDate)
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketCreated, events.EventTicketCreated}, f.eventTypes())
}

func TestCreateSkipsTakenIDs(t *testing.T) {
	f := newTicketFixture(t)
	f.store.PutTicket(domain.Ticket{ID: "MT-2505-001", Status: domain.TicketStatusClosed})
	f.store.PutTicket(domain.Ticket{ID: "MT-2505-002", Status: domain.TicketStatusClosed})

	ticket := f.create(t, "")
	assert.Equal(t, "MT-2505-003", ticket.ID)
	assert.Equal(t, 3, f.store.Counter("2505"))
}

func TestCreateFailsWhenEveryCandidateIsTaken(t *testing.T) {
	f := newTicketFixture(t)
	f.store.SetCounter("2505", 40)
	for seq := 41; seq < 41+maxIDProbes; seq++ {
		f.store.PutTicket(domain.Ticket{ID: domain.FormatTicketID("MT", "2505", seq), Status: domain.TicketStatusClosed})
	}

	_, err := f.svc.Create(context.Background(), req, createInput(""))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	assert.Equal(t, 40, f.store.Counter("2505"), "counter must not move")

	f.store.SetCounter("2505", 40+maxIDProbes)
	ticket := f.create(t, "")
	assert.Equal(t, domain.FormatTicketID("MT", "2505", 41+maxIDProbes), ticket.ID)
}

func TestCreateMonthRollover(t *testing.T) {
	f := newTicketFixture(t)
	f.now = time.Date(2025, time.May, 31, 23, 59, 0, 0, time.UTC)
	may := f.create(t, "")
	f.now = time.Date(2025, time.June, 1, 0, 1, 0, 0, time.UTC)
	june := f.create(t, "")

	assert.Equal(t, "MT-2505-001", may.ID)
	assert.Equal(t, "MT-2506-001", june.ID)
	assert.Equal(t, 1, f.store.Counter("2505"))
	assert.Equal(t, 1, f.store.Counter("2506"))
}

func TestCreateConcurrentIDsAreUnique(t *testing.T) {
	f := newTicketFixture(t)
	const n = 25

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := f.svc.Create(context.Background(), req, createInput(""))
			if assert.NoError(t, err) {
				ids <- ticket.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, f.store.Counter("2505"))
}

func TestCreateValidation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, tech, createInput(""))
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = f.svc.Create(ctx, req, TicketCreateInput{MachineName: " "})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Equal(t, []string{"machine_name", "issue_item", "area"}, apperrors.ToDomainError(err).Details["fields"])

	in := createInput("")
	in.Factory = "SAL09"
	_, err = f.svc.Create(ctx, req, in)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	in = createInput("")
	in.JobType = domain.OtherOption
	in.JobTypeOther = " roof "
	ticket, err := f.svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, "อื่นๆ (roof)", ticket.JobType)
}

func TestTransitionFullLifecycle(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, "Production")

	view, err := f.svc.Transition(ctx, tech, ticket.ID, domain.ActionStart, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Status)
	assert.Contains(t, view.Actions, domain.ActionComplete)

	view, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionSave, &domain.Findings{Prevention: strPtr("weekly check")})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Status)
	assert.Equal(t, "weekly check", view.Prevention)

	view, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionComplete, completeFindingsAt(f.now))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitVerify, view.Status)
	assert.Equal(t, 1.5, view.TotalHours)

	view, err = f.svc.Transition(ctx, req, ticket.ID, domain.ActionConfirm, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitApprove, view.Status)

	view, err = f.svc.Transition(ctx, sup, ticket.ID, domain.ActionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, view.Status)

	history, err := f.svc.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, domain.ActionStart, history[0].Action)
	assert.Equal(t, domain.TicketStatusOpen, history[0].OldStatus)
	assert.Equal(t, domain.ActionSave, history[1].Action)
	assert.Equal(t, history[1].OldStatus, history[1].NewStatus)
	assert.Equal(t, "Sup One", history[4].ActorName)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketStatusChanged,
		events.EventTicketStatusChanged,
	}, f.eventTypes())
}

func strPtr(s string) *string { return &s }

func TestTransitionErrors(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, "")

	_, err := f.svc.Transition(ctx, tech, "MT-0000-999", domain.ActionStart, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	_, err = f.svc.Transition(ctx, req, ticket.ID, domain.ActionStart, nil)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = f.svc.Transition(ctx, sup, ticket.ID, domain.ActionApprove, nil)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))

	_, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionStart, nil)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionComplete, &domain.Findings{})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	broken := domain.MachineStatus("Broken")
	_, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionSave, &domain.Findings{MCStatus: &broken})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	stored, err := f.svc.Get(ctx, tech, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status, "failed transition must not persist")
}

func TestTransitionOverdueNeedsDelayReason(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, "")
	_, err := f.svc.Transition(ctx, tech, ticket.ID, domain.ActionStart, nil)
	require.NoError(t, err)

	f.now = f.now.Add(49 * time.Hour)
	view, err := f.svc.Get(ctx, tech, ticket.ID)
	require.NoError(t, err)
	assert.True(t, view.Overdue)

	_, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionComplete, completeFindingsAt(f.now))
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Equal(t, []string{"delay_reason"}, apperrors.ToDomainError(err).Details["fields"])

	findings := completeFindingsAt(f.now)
	findings.DelayReason = strPtr("waiting for vendor")
	_, err = f.svc.Transition(ctx, tech, ticket.ID, domain.ActionComplete, findings)
	require.NoError(t, err)
}

func TestListTabsAndHistory(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	open := f.create(t, "QA")
	started := f.create(t, "Production")
	_, err := f.svc.Transition(ctx, tech, started.ID, domain.ActionStart, nil)
	require.NoError(t, err)

	closedAt := time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)
	f.store.PutTicket(domain.Ticket{ID: "MT-2504-007", Department: "QA", Status: domain.TicketStatusClosed, ClosedAt: &closedAt, CreatedAt: closedAt})
	f.store.PutTicket(domain.Ticket{ID: "MT-2504-008", Department: "Production", Status: domain.TicketStatusClosed, ClosedAt: &closedAt, CreatedAt: closedAt})

	views, err := f.svc.List(ctx, req, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, open.ID, views[0].ID)

	views, err = f.svc.List(ctx, req, TicketListFilter{Tab: TabInProgress})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, started.ID, views[0].ID)

	views, err = f.svc.List(ctx, req, TicketListFilter{Tab: TabHistory})
	require.NoError(t, err)
	assert.Empty(t, views, "history defaults to the current month")

	views, err = f.svc.List(ctx, req, TicketListFilter{Tab: TabHistory, Month: "2025-04"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Production", views[0].Department)

	views, err = f.svc.List(ctx, req, TicketListFilter{Tab: TabHistory, Month: "2025-04", Department: "QA"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "MT-2504-007", views[0].ID)

	_, err = f.svc.List(ctx, req, TicketListFilter{Tab: "bogus"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	_, err = f.svc.List(ctx, req, TicketListFilter{Tab: TabHistory, Month: "April"})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	counts, err := f.svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.ByTab[TabOpen])
	assert.Equal(t, 1, counts.ByTab[TabInProgress])
	assert.Equal(t, 2, counts.ByStatus[domain.TicketStatusClosed])
	_, hasHistory := counts.ByTab[TabHistory]
	assert.False(t, hasHistory)

	depts, err := f.svc.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Production", "QA"}, depts)
}

func TestDeleteRollsBackLatestCounter(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	f.create(t, "")
	second := f.create(t, "")
	require.Equal(t, 2, f.store.Counter("2505"))

	err := f.svc.Delete(ctx, req, second.ID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	require.NoError(t, f.svc.Delete(ctx, admin, second.ID))
	assert.Equal(t, 1, f.store.Counter("2505"))

	again := f.create(t, "")
	assert.Equal(t, second.ID, again.ID)

	err = f.svc.Delete(ctx, admin, second.ID+"-x")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestDeleteKeepsCounterForOlderOrApproved(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	first := f.create(t, "")
	f.create(t, "")

	require.NoError(t, f.svc.Delete(ctx, admin, first.ID))
	assert.Equal(t, 2, f.store.Counter("2505"))

	f.store.PutTicket(domain.Ticket{ID: "MT-2505-003", Status: domain.TicketStatusClosed})
	f.store.SetCounter("2505", 3)
	require.NoError(t, f.svc.Delete(ctx, admin, "MT-2505-003"))
	assert.Equal(t, 3, f.store.Counter("2505"))
}

func TestRename(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, "")

	_, err := f.svc.Rename(ctx, sup, ticket.ID, "NEW-1")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"), "open tickets cannot be renamed")

	f.store.PutTicket(domain.Ticket{ID: "OLD-1", Status: domain.TicketStatusClosed})
	f.store.PutTicket(domain.Ticket{ID: "TAKEN", Status: domain.TicketStatusClosed})
	require.NoError(t, f.store.History().Create(ctx, &domain.TicketHistory{TicketID: "OLD-1", Action: domain.ActionApprove}))

	_, err = f.svc.Rename(ctx, tech, "OLD-1", "NEW-1")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	_, err = f.svc.Rename(ctx, sup, "OLD-1", "TAKEN")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))

	renamed, err := f.svc.Rename(ctx, sup, "OLD-1", " Line2-new-1 ")
	require.NoError(t, err)
	assert.Equal(t, "Line2-new-1", renamed.ID, "casing is kept as typed")

	_, err = f.svc.Get(ctx, sup, "OLD-1")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	history, err := f.svc.History(ctx, "Line2-new-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestBatchDeleteLeavesCounters(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	a := f.create(t, "")
	b := f.create(t, "")

	n, err := f.svc.BatchDelete(ctx, admin, []string{a.ID, b.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, f.store.Counter("2505"))

	_, err = f.svc.BatchDelete(ctx, admin, []string{" "})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	_, err = f.svc.BatchDelete(ctx, sup, []string{a.ID})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestTicketsOrderedByCreation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	a := f.create(t, "")
	f.now = f.now.Add(time.Minute)
	b := f.create(t, "")

	tickets, err := f.svc.Tickets(ctx, []string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, a.ID, tickets[0].ID)

	_, err = f.svc.Tickets(ctx, []string{"nope"})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
