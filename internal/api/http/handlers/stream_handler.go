package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/realtime"
)

const defaultKeepAlive = 25 * time.Second

// StreamHandler pushes ticket changes to dashboards over server-sent events.
// Frames only say that something changed; clients re-fetch the list.
type StreamHandler struct {
	hub       *realtime.Hub
	keepAlive time.Duration
}

// NewStreamHandler constructs handler. A zero keepAlive uses the default.
func NewStreamHandler(hub *realtime.Hub, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamHandler{hub: hub, keepAlive: keepAlive}
}

// Stream handles GET /tickets/stream.
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	msgs, cancel := h.hub.Subscribe()
	keepAlive := h.keepAlive

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		fmt.Fprint(w, "event: ready\ndata: {}\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: ticket\ndata: %s\n\n", msg)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// A failed flush means the client went away.
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
