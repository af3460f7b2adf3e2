// Package realtime fans order and chat events out to websocket subscribers,
// across instances when Redis is configured.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	TopicAdminOrders = "admin:orders"

	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventMessage      = "message.created"
	EventReady        = "ready"

	redisChannel = "krostyshop:events"
)

// OrderTopic is the per-order chat topic
func OrderTopic(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

// Event is what subscribers receive
type Event struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data,omitempty"`
	At    time.Time       `json:"at"`
}

// envelope travels over Redis; Origin lets an instance skip its own messages
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Subscription receives events for one topic until closed
type Subscription struct {
	topic string
	ch    chan Event
}

func (s *Subscription) C() <-chan Event { return s.ch }
func (s *Subscription) Topic() string   { return s.topic }

// Publisher is the narrow interface services depend on
type Publisher interface {
	Publish(ctx context.Context, topic, eventType string, data any) error
}

type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}

	// Redis connection for cross-instance communication
	rdb    redis.UniversalClient
	origin string
}

// NewHub creates a hub; rdb may be nil for a single instance
func NewHub(rdb redis.UniversalClient) *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		rdb:    rdb,
		origin: uuid.NewString(),
	}
}

// Run relays events published by other instances until ctx is done
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}

	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()
	log.Info().Str("channel", redisChannel).Msg("realtime hub subscribed to redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn().Err(err).Msg("drop malformed realtime message")
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			h.deliver(env.Event)
		}
	}
}

// Subscribe registers interest in topic. buffer bounds how far a slow
// subscriber may fall behind before it is dropped.
func (h *Hub) Subscribe(topic string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{topic: topic, ch: make(chan Event, buffer)}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	subs, ok := h.topics[sub.topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.topics, sub.topic)
	}
}

// Publish delivers locally and to other instances
func (h *Hub) Publish(ctx context.Context, topic, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	evt := Event{Type: eventType, Topic: topic, Data: raw, At: time.Now().UTC()}

	h.deliver(evt)

	if h.rdb != nil {
		payload, err := json.Marshal(envelope{Origin: h.origin, Event: evt})
		if err != nil {
			return err
		}
		if err := h.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("realtime redis publish failed")
			return err
		}
	}
	return nil
}

func (h *Hub) deliver(evt Event) {
	var slow []*Subscription

	h.mu.RLock()
	for sub := range h.topics[evt.Topic] {
		select {
		case sub.ch <- evt:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, sub := range slow {
		log.Warn().Str("topic", sub.topic).Msg("subscriber buffer full, dropping subscriber")
		h.removeLocked(sub)
	}
	h.mu.Unlock()
}

// Subscribers reports how many local subscribers topic has
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
