// Package events publishes domain events to Kafka topics as JSON messages
// keyed by entity id.
package events

import (
	"context"
	"sync"
)

const (
	TopicOrders   = "order_events"
	TopicProducts = "product_events"
	TopicCart     = "cart_events"
)

const (
	OrderCreated       = "order_created"
	OrderUpdated       = "order_updated"
	OrderStatusChanged = "order_status_changed"
	ProductCreated     = "product_created"
	ProductUpdated     = "product_updated"
	ProductDeleted     = "product_deleted"
	BatchCreated       = "batch_created"
	BatchUpdated       = "batch_updated"
	BatchDeleted       = "batch_deleted"
	CartChanged        = "cart_changed"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Nop struct{}

func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }

type Message struct {
	Topic string
	Key   string
	Event any
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Topic returns the messages published to one topic, in order.
func (r *Recorder) Topic(topic string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
