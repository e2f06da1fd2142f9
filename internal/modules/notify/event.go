// README: Push event shape shared by the hub and the SSE stream.
package notify

import "time"

const (
	TypeConnected = "connected"
	TypeHeartbeat = "heartbeat"
)

type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
