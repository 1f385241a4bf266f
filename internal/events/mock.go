package events

import (
	"context"
	"sync"
)

// MockPublisher records published events for test assertions.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, event InvoiceEvent) error

	mu     sync.Mutex
	events []InvoiceEvent
}

func (m *MockPublisher) Publish(ctx context.Context, event InvoiceEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []InvoiceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InvoiceEvent(nil), m.events...)
}

// Subjects returns the subject of each published event in order.
func (m *MockPublisher) Subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Subject
	}
	return out
}
