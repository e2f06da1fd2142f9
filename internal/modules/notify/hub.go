// README: In-process listener registry; per-target fan-out, never blocking.
package notify

import (
	"sync"

	"github.com/google/uuid"
)

// listenerBuffer bounds each subscriber channel; events beyond it are dropped
// for that listener rather than blocking the publisher.
const listenerBuffer = 16

// Hub is the process-wide listener registry. There is no durable queue:
// events published while a target has no listener are dropped.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[string]chan Event)}
}

// Subscribe registers a listener for a target and returns its handle and
// channel. The channel is closed by Unsubscribe.
func (h *Hub) Subscribe(target string) (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, listenerBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners[target] == nil {
		h.listeners[target] = make(map[string]chan Event)
	}
	h.listeners[target][id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(target, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if chans, ok := h.listeners[target]; ok {
		if ch, ok := chans[id]; ok {
			delete(chans, id)
			close(ch)
		}
		if len(chans) == 0 {
			delete(h.listeners, target)
		}
	}
}

// Publish delivers the event to every current listener of the target and
// returns how many received it. Slow listeners lose events instead of
// stalling the caller.
func (h *Hub) Publish(target string, e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.listeners[target] {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Listeners reports the current listener count for a target.
func (h *Hub) Listeners(target string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[target])
}
