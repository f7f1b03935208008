package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/notify"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/observability"
)

// TicketNotifier sends new-ticket notices to a chat.
type TicketNotifier interface {
	NotifyTicketCreated(ctx context.Context, notice notify.TicketNotice) error
}

// NotificationService turns ticket_created events into chat notices. Sending
// happens off the publishing goroutine and never fails the request.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   TicketNotifier
	metrics    *observability.Metrics
	logger     *zap.Logger
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Notifier   TicketNotifier
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	n := &NotificationService{
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		timeout:    deps.Timeout,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	if n.timeout <= 0 {
		n.timeout = 10 * time.Second
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	if n.notifier == nil {
		n.metrics.RecordNotification("skipped")
		return nil
	}
	payload, _ := event.Payload.(events.TicketCreatedPayload)
	notice := notify.TicketNotice{
		TicketID:          event.TicketID,
		Department:        payload.Department,
		MachineName:       payload.MachineName,
		IssueItem:         payload.IssueItem,
		RequesterFullname: payload.RequesterFullname,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		// Detached from the request context, which ends with the response.
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.send(ctx, notice)
	}()
	return nil
}

func (n *NotificationService) send(ctx context.Context, notice notify.TicketNotice) {
	err := n.notifier.NotifyTicketCreated(ctx, notice)
	switch {
	case err == nil:
		n.metrics.RecordNotification("sent")
		n.logger.Debug("ticket notice sent", zap.String("ticket_id", notice.TicketID))
	case errors.Is(err, notify.ErrNotConfigured):
		n.metrics.RecordNotification("skipped")
	default:
		n.metrics.RecordNotification("failed")
		n.logger.Warn("ticket notice failed", zap.String("ticket_id", notice.TicketID), zap.Error(err))
	}
}

// Wait blocks until in-flight notices finish. Called on shutdown.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}
