package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
)

func TestPublishWithoutRedisBroadcastsLocally(t *testing.T) {
	hub := NewHub(nil, nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	err := hub.Publish(context.Background(), events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  "MT-2505-001",
		Actor:     events.Actor{Username: "req1"},
		Timestamp: time.UnixMilli(1700000000000),
	})
	require.NoError(t, err)

	select {
	case raw := <-ch:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, events.EventTicketCreated, msg.Type)
		assert.Equal(t, "MT-2505-001", msg.TicketID)
		assert.Equal(t, "req1", msg.Actor)
		assert.Equal(t, int64(1700000000000), msg.At)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestBroadcastDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(nil, nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Broadcast([]byte("x"))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestCancelUnsubscribesOnce(t *testing.T) {
	hub := NewHub(nil, nil)
	ch, cancel := hub.Subscribe()
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, hub.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	hub.Broadcast([]byte("after"))
}

func TestRunWithoutRedisReturns(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewHub(nil, nil).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run blocked without redis")
	}
}

func TestCloseEndsStreams(t *testing.T) {
	hub := NewHub(nil, nil)
	ch, cancel := hub.Subscribe()

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	assert.NotPanics(t, cancel)
	assert.Equal(t, 0, hub.Subscribers())
}
