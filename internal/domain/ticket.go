package domain

import (
	"math"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "Open"
	TicketStatusInProgress  TicketStatus = "In_Progress"
	TicketStatusWaitingPart TicketStatus = "Waiting_Part"
	TicketStatusWaitLeader  TicketStatus = "Wait_Leader"
	TicketStatusWaitVerify  TicketStatus = "Wait_Verify"
	TicketStatusWaitApprove TicketStatus = "Wait_Approve"
	TicketStatusClosed      TicketStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingPart, TicketStatusWaitLeader,
		TicketStatusWaitVerify, TicketStatusWaitApprove, TicketStatusClosed:
		return true
	}
	return false
}

// Approved reports whether the ticket has passed verification and only awaits
// or has received sign-off.
func (s TicketStatus) Approved() bool {
	return s == TicketStatusWaitApprove || s == TicketStatusClosed
}

// MachineStatus records whether the machine was stopped for the repair.
type MachineStatus string

const (
	MachineStopped    MachineStatus = "Stop MC"
	MachineNotStopped MachineStatus = "Not Stop"
)

// Valid reports whether s is a known status. Empty means not recorded yet.
func (s MachineStatus) Valid() bool {
	return s == "" || s == MachineStopped || s == MachineNotStopped
}

// Factory identifies the plant a ticket was filed for.
type Factory string

const (
	FactorySAL01 Factory = "SAL01"
	FactorySAL02 Factory = "SAL02"
)

const (
	// OtherOption is the dropdown value that takes free text.
	OtherOption = "อื่นๆ"

	// ManualMachineID marks tickets filed by hand rather than from an asset register.
	ManualMachineID = "MANUAL"
	SourceManual    = "Manual"

	// OverdueAfter is how long a ticket may stay open before a delay reason is required.
	OverdueAfter = 48 * time.Hour
)

// SparePart is a consumed part line on a work order.
type SparePart struct {
	Name string  `json:"name"`
	Qty  float64 `json:"qty"`
}

// Ticket is a maintenance work order.
type Ticket struct {
	ID                string
	MachineID         string
	MachineName       string
	JobType           string
	Department        string
	Factory           Factory
	Area              string
	IssueItem         string
	IssueDetail       string
	ImageURL          string
	Status            TicketStatus
	Source            string
	Requester         string
	RequesterFullname string
	RequesterDate     string

	TechnicianID           string
	TechnicianName         string
	CauseDetail            string
	Solution               string
	Prevention             string
	CauseCategory          string
	CauseCategoryOther     string
	SpareParts             []SparePart
	MaintenanceResult      string
	MaintenanceResultOther string
	ResultRemark           string
	DelayReason            string
	MCStatus               MachineStatus

	StartTime  *time.Time
	EndTime    *time.Time
	TotalHours float64

	LeaderCheckedBy string
	LeaderCheckedAt *time.Time
	VerifiedBy      string
	VerifiedAt      *time.Time
	ApprovedBy      string
	ApprovedAt      *time.Time
	ClosedAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOverdue reports whether the ticket has been open longer than OverdueAfter.
func (t *Ticket) IsOverdue(now time.Time) bool {
	if t.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(t.CreatedAt) > OverdueAfter
}

// ShowOverdue is the overdue flag as displayed: only work still being repaired is flagged.
func (t *Ticket) ShowOverdue(now time.Time) bool {
	return t.Status == TicketStatusInProgress && t.IsOverdue(now)
}

// Elapsed returns the time since creation.
func (t *Ticket) Elapsed(now time.Time) time.Duration {
	if t.CreatedAt.IsZero() || now.Before(t.CreatedAt) {
		return 0
	}
	return now.Sub(t.CreatedAt)
}

// RecomputeHours refreshes TotalHours from StartTime/EndTime.
func (t *Ticket) RecomputeHours() {
	t.TotalHours = RepairHours(t.StartTime, t.EndTime)
}

// RepairHours is the decimal hours between start and end rounded to two places,
// or zero when either end is missing or the range is inverted.
func RepairHours(start, end *time.Time) float64 {
	if start == nil || end == nil || end.Before(*start) {
		return 0
	}
	hours := end.Sub(*start).Hours()
	return math.Round(hours*100) / 100
}

// WithOther encodes a dropdown choice, expanding the "other" option with its free text.
func WithOther(choice, other string) string {
	if choice == OtherOption {
		return OtherOption + " (" + strings.TrimSpace(other) + ")"
	}
	return choice
}

// OtherText extracts the free text from a value encoded by WithOther.
func OtherText(value string) string {
	open := strings.Index(value, "(")
	if open < 0 {
		return ""
	}
	rest := value[open+1:]
	if next := strings.Index(rest, "("); next >= 0 {
		rest = rest[:next]
	}
	return strings.Replace(rest, ")", "", 1)
}

// HistoryTime is the timestamp used to place a closed ticket in a reporting month.
func (t *Ticket) HistoryTime() time.Time {
	if t.ClosedAt != nil {
		return *t.ClosedAt
	}
	return t.CreatedAt
}
