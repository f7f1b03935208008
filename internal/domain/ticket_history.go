package domain

import "time"

// TicketHistory is an immutable audit entry written on every workflow action.
type TicketHistory struct {
	ID        string
	TicketID  string
	Action    TicketAction
	OldStatus TicketStatus
	NewStatus TicketStatus
	ActorUser string
	ActorName string
	CreatedAt time.Time
}
