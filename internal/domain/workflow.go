package domain

import (
	"errors"
	"strings"
	"time"
)

// TicketAction is a user action that may move a ticket through its lifecycle.
type TicketAction string

const (
	ActionStart       TicketAction = "start"
	ActionSave        TicketAction = "save"
	ActionWaitPart    TicketAction = "wait_part"
	ActionResume      TicketAction = "resume"
	ActionComplete    TicketAction = "complete"
	ActionLeaderCheck TicketAction = "leader_check"
	ActionConfirm     TicketAction = "confirm"
	ActionToApprove   TicketAction = "to_approve"
	ActionApprove     TicketAction = "approve"
)

var (
	ErrUnknownAction        = errors.New("unknown action")
	ErrInvalidTransition    = errors.New("action not allowed in current status")
	ErrActionForbidden      = errors.New("role may not perform this action")
	ErrIncompleteFindings   = errors.New("cause, solution, category, result, start and end time are required")
	ErrDelayReasonRequired  = errors.New("overdue ticket requires a delay reason")
	ErrWorkflowDisabled     = errors.New("workflow stage disabled")
	ErrInvalidMachineStatus = errors.New(`mc_status must be "Stop MC" or "Not Stop"`)
)

// WorkflowOptions selects the lifecycle variant.
type WorkflowOptions struct {
	// LeaderCheck routes completed work through Wait_Leader before the requester verifies it.
	LeaderCheck bool
}

// Findings is a partial update of the technician's fields. Nil fields are left untouched.
type Findings struct {
	CauseDetail            *string
	Solution               *string
	Prevention             *string
	CauseCategory          *string
	CauseCategoryOther     *string
	MaintenanceResult      *string
	MaintenanceResultOther *string
	ResultRemark           *string
	DelayReason            *string
	MCStatus               *MachineStatus
	SpareParts             []SparePart
	StartTime              *time.Time
	EndTime                *time.Time
}

type actionRule struct {
	from     []TicketStatus
	allowed  func(u *User, t *Ticket) bool
	editable bool
}

func technician(u *User, _ *Ticket) bool { return u.IsTechnician() }
func leader(u *User, _ *Ticket) bool     { return u.IsLeader() }
func supervisor(u *User, _ *Ticket) bool { return u.IsSupervisor() }
func requester(u *User, t *Ticket) bool  { return u.IsRequesterOf(t) }

// saveAllowed lets technicians edit live work and super admins correct finished work.
func saveAllowed(u *User, t *Ticket) bool {
	switch t.Status {
	case TicketStatusInProgress, TicketStatusWaitingPart:
		return u.IsTechnician()
	case TicketStatusWaitApprove, TicketStatusClosed:
		return u.IsSuperAdmin()
	}
	return false
}

var actionRules = map[TicketAction]actionRule{
	ActionStart: {
		from:    []TicketStatus{TicketStatusOpen},
		allowed: technician,
	},
	ActionSave: {
		from:     []TicketStatus{TicketStatusInProgress, TicketStatusWaitingPart, TicketStatusWaitApprove, TicketStatusClosed},
		allowed:  saveAllowed,
		editable: true,
	},
	ActionWaitPart: {
		from:     []TicketStatus{TicketStatusInProgress},
		allowed:  technician,
		editable: true,
	},
	ActionResume: {
		from:     []TicketStatus{TicketStatusWaitingPart},
		allowed:  technician,
		editable: true,
	},
	ActionComplete: {
		from:     []TicketStatus{TicketStatusInProgress},
		allowed:  technician,
		editable: true,
	},
	ActionLeaderCheck: {
		from:    []TicketStatus{TicketStatusWaitLeader},
		allowed: leader,
	},
	ActionConfirm: {
		from:    []TicketStatus{TicketStatusWaitVerify},
		allowed: requester,
	},
	ActionToApprove: {
		from:     []TicketStatus{TicketStatusWaitVerify},
		allowed:  supervisor,
		editable: true,
	},
	ActionApprove: {
		from:    []TicketStatus{TicketStatusWaitApprove},
		allowed: supervisor,
	},
}

// ParseAction validates a raw action name.
func ParseAction(raw string) (TicketAction, error) {
	action := TicketAction(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := actionRules[action]; !ok {
		return "", ErrUnknownAction
	}
	return action, nil
}

// AvailableActions lists what actor may do to t right now.
func AvailableActions(t *Ticket, actor *User, opts WorkflowOptions) []TicketAction {
	var out []TicketAction
	for _, action := range []TicketAction{
		ActionStart, ActionSave, ActionWaitPart, ActionResume, ActionComplete,
		ActionLeaderCheck, ActionConfirm, ActionToApprove, ActionApprove,
	} {
		if action == ActionLeaderCheck && !opts.LeaderCheck {
			continue
		}
		if checkAction(t, actor, action) == nil {
			out = append(out, action)
		}
	}
	return out
}

func checkAction(t *Ticket, actor *User, action TicketAction) error {
	rule, ok := actionRules[action]
	if !ok {
		return ErrUnknownAction
	}
	if !statusIn(t.Status, rule.from) {
		return ErrInvalidTransition
	}
	if actor == nil || !rule.allowed(actor, t) {
		return ErrActionForbidden
	}
	return nil
}

// ApplyAction runs action against t in place and returns the status it left.
// Findings are only applied for actions that edit the work record; t is left
// partially patched on validation failure, so callers should pass a copy.
func ApplyAction(t *Ticket, actor *User, action TicketAction, f *Findings, now time.Time, opts WorkflowOptions) (TicketStatus, error) {
	if err := checkAction(t, actor, action); err != nil {
		return t.Status, err
	}
	if action == ActionLeaderCheck && !opts.LeaderCheck {
		return t.Status, ErrWorkflowDisabled
	}

	old := t.Status
	if actionRules[action].editable && f != nil {
		if f.MCStatus != nil && !f.MCStatus.Valid() {
			return old, ErrInvalidMachineStatus
		}
		applyFindings(t, f)
	}

	switch action {
	case ActionStart:
		t.Status = TicketStatusInProgress
		t.TechnicianID = actor.Username
		t.TechnicianName = actor.DisplayName()
		started := now
		t.StartTime = &started
		t.RecomputeHours()
	case ActionWaitPart:
		t.Status = TicketStatusWaitingPart
	case ActionResume:
		t.Status = TicketStatusInProgress
	case ActionComplete:
		if err := validateCompletion(t, now); err != nil {
			return old, err
		}
		if opts.LeaderCheck {
			t.Status = TicketStatusWaitLeader
		} else {
			t.Status = TicketStatusWaitVerify
		}
	case ActionLeaderCheck:
		t.Status = TicketStatusWaitVerify
		t.LeaderCheckedBy = actor.DisplayName()
		checked := now
		t.LeaderCheckedAt = &checked
	case ActionConfirm:
		t.Status = TicketStatusWaitApprove
		t.VerifiedBy = actor.DisplayName()
		verified := now
		t.VerifiedAt = &verified
	case ActionToApprove:
		t.Status = TicketStatusWaitApprove
	case ActionApprove:
		t.Status = TicketStatusClosed
		t.ApprovedBy = actor.DisplayName()
		approved := now
		t.ApprovedAt = &approved
		t.ClosedAt = &approved
	}
	t.UpdatedAt = now
	return old, nil
}

func validateCompletion(t *Ticket, now time.Time) error {
	if strings.TrimSpace(t.CauseDetail) == "" ||
		strings.TrimSpace(t.Solution) == "" ||
		strings.TrimSpace(t.CauseCategory) == "" ||
		strings.TrimSpace(t.MaintenanceResult) == "" ||
		t.StartTime == nil || t.EndTime == nil {
		return ErrIncompleteFindings
	}
	if t.IsOverdue(now) && strings.TrimSpace(t.DelayReason) == "" {
		return ErrDelayReasonRequired
	}
	return nil
}

func applyFindings(t *Ticket, f *Findings) {
	setString(&t.CauseDetail, f.CauseDetail)
	setString(&t.Solution, f.Solution)
	setString(&t.Prevention, f.Prevention)
	setString(&t.CauseCategory, f.CauseCategory)
	setString(&t.CauseCategoryOther, f.CauseCategoryOther)
	setString(&t.MaintenanceResult, f.MaintenanceResult)
	setString(&t.MaintenanceResultOther, f.MaintenanceResultOther)
	setString(&t.ResultRemark, f.ResultRemark)
	setString(&t.DelayReason, f.DelayReason)
	if f.MCStatus != nil {
		t.MCStatus = *f.MCStatus
	}
	if f.SpareParts != nil {
		parts := make([]SparePart, 0, len(f.SpareParts))
		for _, p := range f.SpareParts {
			if strings.TrimSpace(p.Name) == "" {
				continue
			}
			parts = append(parts, p)
		}
		t.SpareParts = parts
	}
	if f.StartTime != nil {
		start := *f.StartTime
		t.StartTime = &start
	}
	if f.EndTime != nil {
		end := *f.EndTime
		t.EndTime = &end
	}

	if t.CauseCategory != OtherOption {
		t.CauseCategoryOther = ""
	}
	if t.MaintenanceResult != OtherOption {
		t.MaintenanceResultOther = ""
	}
	if t.MCStatus == "" {
		t.MCStatus = MachineNotStopped
	}
	t.RecomputeHours()
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func statusIn(s TicketStatus, set []TicketStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}
