package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wfNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func timep(t time.Time) *time.Time { return &t }

func newTicket(status TicketStatus) *Ticket {
	return &Ticket{
		ID:        "MT-2503-001",
		Status:    status,
		Requester: "req1",
		CreatedAt: wfNow.Add(-time.Hour),
	}
}

func completeFindings() *Findings {
	return &Findings{
		CauseDetail:       strp("bearing worn"),
		Solution:          strp("replaced bearing"),
		CauseCategory:     strp("Wear"),
		MaintenanceResult: strp("Fixed"),
		StartTime:         timep(wfNow.Add(-2 * time.Hour)),
		EndTime:           timep(wfNow.Add(-30 * time.Minute)),
	}
}

func TestApplyAction_HappyPath(t *testing.T) {
	tech := &User{Username: "tech1", Fullname: "Tech One", Role: RoleTechnician}
	req := &User{Username: "req1", Fullname: "Req One", Role: RoleRequester}
	sup := &User{Username: "sup1", Fullname: "Sup One", Role: RoleSupervisor}
	ticket := newTicket(TicketStatusOpen)

	old, err := ApplyAction(ticket, tech, ActionStart, nil, wfNow, WorkflowOptions{})
	require.NoError(t, err)
	assert.Equal(t, TicketStatusOpen, old)
	assert.Equal(t, TicketStatusInProgress, ticket.Status)
	assert.Equal(t, "tech1", ticket.TechnicianID)
	assert.Equal(t, "Tech One", ticket.TechnicianName)
	require.NotNil(t, ticket.StartTime)

	_, err = ApplyAction(ticket, tech, ActionComplete, completeFindings(), wfNow, WorkflowOptions{})
	require.NoError(t, err)
	assert.Equal(t, TicketStatusWaitVerify, ticket.Status)
	assert.Equal(t, 1.5, ticket.TotalHours)
	assert.Equal(t, MachineNotStopped, ticket.MCStatus)

	_, err = ApplyAction(ticket, req, ActionConfirm, nil, wfNow, WorkflowOptions{})
	require.NoError(t, err)
	assert.Equal(t, TicketStatusWaitApprove, ticket.Status)
	assert.Equal(t, "Req One", ticket.VerifiedBy)

	_, err = ApplyAction(ticket, sup, ActionApprove, nil, wfNow, WorkflowOptions{})
	require.NoError(t, err)
	assert.Equal(t, TicketStatusClosed, ticket.Status)
	assert.Equal(t, "Sup One", ticket.ApprovedBy)
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, wfNow, *ticket.ClosedAt)
}

func TestApplyAction_LeaderCheckVariant(t *testing.T) {
	tech := &User{Username: "tech1", Role: RoleTechnician}
	lead := &User{Username: "lead1", Fullname: "Lead", Role: RoleLeader}
	opts := WorkflowOptions{LeaderCheck: true}
	ticket := newTicket(TicketStatusInProgress)

	_, err := ApplyAction(ticket, tech, ActionComplete, completeFindings(), wfNow, opts)
	require.NoError(t, err)
	assert.Equal(t, TicketStatusWaitLeader, ticket.Status)

	_, err = ApplyAction(ticket, tech, ActionLeaderCheck, nil, wfNow, opts)
	assert.ErrorIs(t, err, ErrActionForbidden)

	_, err = ApplyAction(ticket, lead, ActionLeaderCheck, nil, wfNow, opts)
	require.NoError(t, err)
	assert.Equal(t, TicketStatusWaitVerify, ticket.Status)
	assert.Equal(t, "Lead", ticket.LeaderCheckedBy)
}

func TestApplyAction_LeaderCheckDisabled(t *testing.T) {
	lead := &User{Username: "lead1", Role: RoleLeader}
	ticket := newTicket(TicketStatusWaitLeader)

	_, err := ApplyAction(ticket, lead, ActionLeaderCheck, nil, wfNow, WorkflowOptions{})
	assert.ErrorIs(t, err, ErrWorkflowDisabled)
}

func TestApplyAction_Gates(t *testing.T) {
	cases := []struct {
		name   string
		status TicketStatus
		actor  *User
		action TicketAction
		want   error
	}{
		{"requester cannot start", TicketStatusOpen, &User{Username: "x", Role: RoleRequester}, ActionStart, ErrActionForbidden},
		{"leader can start", TicketStatusOpen, &User{Username: "x", Role: RoleLeader}, ActionStart, nil},
		{"start twice", TicketStatusInProgress, &User{Username: "x", Role: RoleTechnician}, ActionStart, ErrInvalidTransition},
		{"other user confirms", TicketStatusWaitVerify, &User{Username: "x", Role: RoleTechnician}, ActionConfirm, ErrActionForbidden},
		{"filer confirms", TicketStatusWaitVerify, &User{Username: "req1", Role: RoleTechnician}, ActionConfirm, nil},
		{"technician approves", TicketStatusWaitApprove, &User{Username: "x", Role: RoleTechnician}, ActionApprove, ErrActionForbidden},
		{"supervisor skips verify", TicketStatusWaitVerify, &User{Username: "x", Role: RoleSupervisor}, ActionToApprove, nil},
		{"technician edits closed", TicketStatusClosed, &User{Username: "x", Role: RoleTechnician}, ActionSave, ErrActionForbidden},
		{"super admin edits closed", TicketStatusClosed, &User{Username: "x", Role: RoleSuperAdmin}, ActionSave, nil},
		{"save on open", TicketStatusOpen, &User{Username: "x", Role: RoleSuperAdmin}, ActionSave, ErrInvalidTransition},
		{"nil actor", TicketStatusOpen, nil, ActionStart, ErrActionForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := newTicket(tc.status)
			_, err := ApplyAction(ticket, tc.actor, tc.action, nil, wfNow, WorkflowOptions{LeaderCheck: true})
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.status, ticket.Status)
		})
	}
}

func TestApplyAction_CompleteValidation(t *testing.T) {
	tech := &User{Username: "tech1", Role: RoleTechnician}

	ticket := newTicket(TicketStatusInProgress)
	f := completeFindings()
	f.Solution = strp("  ")
	_, err := ApplyAction(ticket, tech, ActionComplete, f, wfNow, WorkflowOptions{})
	assert.ErrorIs(t, err, ErrIncompleteFindings)
	assert.Equal(t, TicketStatusInProgress, ticket.Status)

	overdue := newTicket(TicketStatusInProgress)
	overdue.CreatedAt = wfNow.Add(-49 * time.Hour)
	_, err = ApplyAction(overdue, tech, ActionComplete, completeFindings(), wfNow, WorkflowOptions{})
	assert.ErrorIs(t, err, ErrDelayReasonRequired)

	f = completeFindings()
	f.DelayReason = strp("waiting on vendor")
	_, err = ApplyAction(overdue, tech, ActionComplete, f, wfNow, WorkflowOptions{})
	require.NoError(t, err)
	assert.Equal(t, TicketStatusWaitVerify, overdue.Status)
}

func TestApplyAction_FindingsPatch(t *testing.T) {
	tech := &User{Username: "tech1", Role: RoleTechnician}
	ticket := newTicket(TicketStatusInProgress)
	ticket.Solution = "keep me"
	ticket.CauseCategoryOther = "stale"
	stopped := MachineStopped

	_, err := ApplyAction(ticket, tech, ActionSave, &Findings{
		CauseCategory:          strp("Wear"),
		MaintenanceResult:      strp(OtherOption),
		MaintenanceResultOther: strp("temporary fix"),
		MCStatus:               &stopped,
		SpareParts:             []SparePart{{Name: "belt", Qty: 2}, {Name: " ", Qty: 1}},
	}, wfNow, WorkflowOptions{})
	require.NoError(t, err)

	assert.Equal(t, TicketStatusInProgress, ticket.Status)
	assert.Equal(t, "keep me", ticket.Solution)
	assert.Empty(t, ticket.CauseCategoryOther)
	assert.Equal(t, "temporary fix", ticket.MaintenanceResultOther)
	assert.Equal(t, MachineStopped, ticket.MCStatus)
	assert.Equal(t, []SparePart{{Name: "belt", Qty: 2}}, ticket.SpareParts)
	assert.Equal(t, wfNow, ticket.UpdatedAt)
}

func TestApplyAction_RejectsUnknownMachineStatus(t *testing.T) {
	tech := &User{Username: "tech1", Role: RoleTechnician}
	ticket := newTicket(TicketStatusInProgress)
	ticket.MCStatus = MachineStopped
	broken := MachineStatus("Broken")

	_, err := ApplyAction(ticket, tech, ActionSave, &Findings{MCStatus: &broken, Solution: strp("x")}, wfNow, WorkflowOptions{})
	assert.ErrorIs(t, err, ErrInvalidMachineStatus)
	assert.Equal(t, MachineStopped, ticket.MCStatus)
	assert.Empty(t, ticket.Solution)

	assert.True(t, MachineNotStopped.Valid())
	assert.True(t, MachineStatus("").Valid())
	assert.False(t, MachineStatus("stop mc").Valid())
}

func TestApplyAction_ConfirmIgnoresFindings(t *testing.T) {
	req := &User{Username: "req1", Role: RoleRequester}
	ticket := newTicket(TicketStatusWaitVerify)
	ticket.Solution = "original"

	_, err := ApplyAction(ticket, req, ActionConfirm, &Findings{Solution: strp("tampered")}, wfNow, WorkflowOptions{})
	require.NoError(t, err)
	assert.Equal(t, "original", ticket.Solution)
}

func TestAvailableActions(t *testing.T) {
	tech := &User{Username: "tech1", Role: RoleTechnician}
	ticket := newTicket(TicketStatusInProgress)

	got := AvailableActions(ticket, tech, WorkflowOptions{})
	assert.Equal(t, []TicketAction{ActionSave, ActionWaitPart, ActionComplete}, got)

	admin := &User{Username: "root", Role: RoleSuperAdmin}
	got = AvailableActions(newTicket(TicketStatusWaitApprove), admin, WorkflowOptions{})
	assert.Equal(t, []TicketAction{ActionSave, ActionApprove}, got)
}

func TestParseAction(t *testing.T) {
	action, err := ParseAction(" Complete ")
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, action)

	_, err = ParseAction("teleport")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
