// README: Server-sent events stream for per-user notifications.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/notify"
)

type NotifyHandler struct {
	notify    *notify.Service
	heartbeat time.Duration
}

func NewNotifyHandler(svc *notify.Service, heartbeat time.Duration) *NotifyHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &NotifyHandler{notify: svc, heartbeat: heartbeat}
}

// Stream holds the connection open and pushes events for one target as they
// arrive. A connected event is sent on open and a heartbeat keeps the stream
// alive between business events.
func (h *NotifyHandler) Stream(c *gin.Context) {
	target := c.Query("userId")
	if target == "" {
		target = c.Query("customerId")
	}
	if target == "" {
		writeError(c, http.StatusBadRequest, "userId or customerId is required")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	hub := h.notify.Hub()
	id, events := hub.Subscribe(target)
	defer hub.Unsubscribe(target, id)

	writeSSE(c, notify.Event{Type: notify.TypeConnected, Timestamp: time.Now()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			writeSSE(c, e)
			c.Writer.Flush()
		case <-ticker.C:
			writeSSE(c, notify.Event{Type: notify.TypeHeartbeat, Timestamp: time.Now()})
			c.Writer.Flush()
		}
	}
}

func writeSSE(c *gin.Context, e notify.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", body)
}
