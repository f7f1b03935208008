package worker

import (
	"context"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/observability"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/realtime"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/service"
)

// Subscribers are the consumers of ticket events. Nil members are skipped.
type Subscribers struct {
	Notifications *service.NotificationService
	Hub           *realtime.Hub
	Metrics       *observability.Metrics
}

// StartNotificationWorker registers every ticket event consumer on the dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, subs Subscribers) {
	if dispatcher == nil {
		return
	}
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
	if subs.Hub != nil {
		events.SubscribeAll(dispatcher, subs.Hub.Publish)
	}
	if subs.Metrics != nil {
		metrics := subs.Metrics
		events.SubscribeAll(dispatcher, func(_ context.Context, event events.Event) error {
			metrics.RecordTicketEvent(string(event.Type))
			return nil
		})
	}
}
