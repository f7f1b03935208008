// Package realtime fans ticket events out to dashboard streams. Events travel
// over a Redis channel so every instance sees every change; without Redis the
// hub relays locally.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
)

// Channel is the Redis pub/sub channel carrying ticket events.
const Channel = "maintenance_tickets"

// subscriberBuffer is how many messages a slow stream may lag before it
// starts dropping. Clients re-fetch on any message, so drops are harmless.
const subscriberBuffer = 16

// Message is the JSON frame sent on the channel and to streams.
type Message struct {
	Type     events.EventType `json:"type"`
	TicketID string           `json:"ticket_id"`
	Actor    string           `json:"actor,omitempty"`
	At       int64            `json:"at"`
}

// Hub relays ticket events to local subscribers.
type Hub struct {
	client *redis.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// NewHub builds a hub. client may be nil.
func NewHub(client *redis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{client: client, logger: logger, subs: make(map[chan []byte]struct{})}
}

// Publish is an events.EventHandler. With Redis the frame goes to the shared
// channel and comes back through Run; without it, straight to local streams.
// Failures are logged and never reach the publisher.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	raw, err := json.Marshal(Message{
		Type:     event.Type,
		TicketID: event.TicketID,
		Actor:    event.Actor.Username,
		At:       event.Timestamp.UnixMilli(),
	})
	if err != nil {
		h.logger.Warn("encode realtime message", zap.Error(err))
		return nil
	}
	if h.client == nil {
		h.Broadcast(raw)
		return nil
	}
	if err := h.client.Publish(ctx, Channel, raw).Err(); err != nil {
		h.logger.Warn("realtime publish failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return nil
}

// Run relays the Redis channel to local subscribers until ctx ends. Without
// Redis it returns immediately.
func (h *Hub) Run(ctx context.Context) {
	if h.client == nil {
		return
	}
	pubsub := h.client.Subscribe(ctx, Channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.Broadcast([]byte(msg.Payload))
		}
	}
}

// Broadcast hands raw to every subscriber without blocking.
func (h *Hub) Broadcast(raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub <- raw:
		default:
		}
	}
}

// Subscribe registers a stream. The returned cancel func must be called when
// the stream ends; it closes the channel and is safe to call more than once.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Subscribers reports the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every open stream. Used on shutdown so long-lived responses let
// the server drain.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub)
	}
}
