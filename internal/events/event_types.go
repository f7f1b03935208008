package events

import (
	"time"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketRenamed       EventType = "ticket_renamed"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// TicketEventTypes lists every ticket event, for subscribers that relay all of them.
var TicketEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketUpdated,
	EventTicketRenamed,
	EventTicketDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload carries what the creation notice shows.
type TicketCreatedPayload struct {
	Department        string `json:"department"`
	MachineName       string `json:"machine_name"`
	IssueItem         string `json:"issue_item"`
	IssueDetail       string `json:"issue_detail"`
	RequesterFullname string `json:"requester_fullname"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Action    domain.TicketAction `json:"action"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketUpdatedPayload is sent when findings change without a status move.
type TicketUpdatedPayload struct {
	Action domain.TicketAction `json:"action"`
	Status domain.TicketStatus `json:"status"`
}

// TicketRenamedPayload payload.
type TicketRenamedPayload struct {
	OldID string `json:"old_id"`
	NewID string `json:"new_id"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	CounterRolledBack bool `json:"counter_rolled_back"`
}
