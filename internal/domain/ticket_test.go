package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTicketID(t *testing.T) {
	assert.Equal(t, "EL-2503-007", FormatTicketID("EL", "2503", 7))
	assert.Equal(t, "MT-2503-001", FormatTicketID(" ", "2503", 1))
	assert.Equal(t, "MT-2503-1000", FormatTicketID("MT", "2503", 1000))
}

func TestParseTicketID(t *testing.T) {
	parts, ok := ParseTicketID("MT-2503-012")
	assert.True(t, ok)
	assert.Equal(t, TicketIDParts{Code: "MT", YearMonth: "2503", Seq: 12}, parts)

	parts, ok = ParseTicketID("PR-A-2412-1001")
	assert.True(t, ok)
	assert.Equal(t, TicketIDParts{Code: "PR-A", YearMonth: "2412", Seq: 1001}, parts)

	for _, bad := range []string{"", "MT", "MT-2503", "MT-25x3-001", "MT-25031-001", "MT-2503-abc", "-2503-001"} {
		_, ok := ParseTicketID(bad)
		assert.False(t, ok, bad)
	}
}

func TestYearMonth(t *testing.T) {
	assert.Equal(t, "2501", YearMonth(time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)))
}

func TestRepairHours(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Minute)

	assert.Equal(t, 1.67, RepairHours(&start, &end))
	assert.Zero(t, RepairHours(&end, &start))
	assert.Zero(t, RepairHours(nil, &end))
	assert.Zero(t, RepairHours(&start, nil))
}

func TestOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ticket := &Ticket{Status: TicketStatusOpen, CreatedAt: now.Add(-49 * time.Hour)}

	assert.True(t, ticket.IsOverdue(now))
	assert.False(t, ticket.ShowOverdue(now))

	ticket.Status = TicketStatusInProgress
	assert.True(t, ticket.ShowOverdue(now))

	ticket.CreatedAt = now.Add(-47 * time.Hour)
	assert.False(t, ticket.IsOverdue(now))
	assert.Equal(t, 47*time.Hour, ticket.Elapsed(now))
}

func TestOtherEncoding(t *testing.T) {
	encoded := WithOther(OtherOption, " conveyor ")
	assert.Equal(t, "อื่นๆ (conveyor)", encoded)
	assert.Equal(t, "conveyor", OtherText(encoded))
	assert.Equal(t, "Machine", WithOther("Machine", "ignored"))
	assert.Empty(t, OtherText("Machine"))
}

func TestHistoryTime(t *testing.T) {
	created := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	closed := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	ticket := &Ticket{CreatedAt: created}
	assert.Equal(t, created, ticket.HistoryTime())
	ticket.ClosedAt = &closed
	assert.Equal(t, closed, ticket.HistoryTime())
}

func TestDepartmentCode(t *testing.T) {
	var missing *SettingsList
	assert.Equal(t, "MT", missing.DepartmentCode("Production"))

	list := &SettingsList{Name: SettingsDepartments, Items: []SettingItem{
		{Name: "Production", Code: "PD"},
		{Name: "Warehouse"},
	}}
	assert.Equal(t, "PD", list.DepartmentCode("Production"))
	assert.Equal(t, "MT", list.DepartmentCode("Warehouse"))
	assert.Equal(t, "MT", list.DepartmentCode("Unknown"))
}

func TestRoleLattice(t *testing.T) {
	admin := &User{Username: "a", Role: RoleSuperAdmin}
	leader := &User{Username: "l", Role: RoleLeader}
	req := &User{Username: "r", Role: RoleRequester}
	ticket := &Ticket{Requester: "l"}

	assert.True(t, admin.IsSupervisor())
	assert.True(t, admin.IsTechnician())
	assert.True(t, leader.IsTechnician())
	assert.False(t, leader.IsSupervisor())
	assert.True(t, leader.IsRequesterOf(ticket))
	assert.True(t, req.CanFileTickets())
	assert.False(t, leader.CanFileTickets())
	assert.False(t, Role("guest").Valid())
}
