// README: Notification service; local hub fan-out with an optional Redis bridge.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notify:"

// Service publishes push events. With a Redis client wired, events travel
// through pub/sub so every instance's hub sees them; without one, delivery is
// instance-local. Push never returns an error: fan-out is fire-and-forget and
// must not fail the operation that triggered it.
type Service struct {
	hub   *Hub
	redis *redis.Client
}

func NewService(hub *Hub, redis *redis.Client) *Service {
	return &Service{hub: hub, redis: redis}
}

func (s *Service) Hub() *Hub {
	return s.hub
}

func (s *Service) Push(target, eventType, title, message string, payload map[string]any) {
	e := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Title:     title,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if s.redis == nil {
		s.hub.Publish(target, e)
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		log.Printf("notify: marshal event: %v", err)
		return
	}
	if err := s.redis.Publish(context.Background(), channelPrefix+target, body).Err(); err != nil {
		log.Printf("notify: publish to redis: %v", err)
		// Degrade to local delivery so single-instance setups keep working
		// through a Redis outage.
		s.hub.Publish(target, e)
	}
}

// Run bridges Redis pub/sub into the local hub. No-op without Redis.
func (s *Service) Run(ctx context.Context) {
	if s.redis == nil {
		return
	}
	sub := s.redis.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			target := strings.TrimPrefix(msg.Channel, channelPrefix)
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Printf("notify: decode event: %v", err)
				continue
			}
			s.hub.Publish(target, e)
		}
	}
}
