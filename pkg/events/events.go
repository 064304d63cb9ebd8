// Package events publishes order lifecycle events for downstream consumers.
// Publishing is best-effort: callers log failures and never roll back on them.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	PaymentConfirmed   = "payment.confirmed"
	PaymentFailed      = "payment.failed"
)

type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	OrderID   uint           `json:"order_id"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

func New(eventType string, orderID uint, payload map[string]any) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      eventType,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Memory keeps published events in order. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the event types in publish order.
func (m *Memory) Types() []string {
	evs := m.Events()
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}
