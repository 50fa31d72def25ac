package viewmodel

import (
	"context"
	"sync"
)

// Event names emitted by the document and the autosave coordinator.
const (
	EventFieldChanged = "doc:field_changed"
	EventCellChanged  = "doc:cell_changed"
	EventRowAdded     = "doc:row_added"
	EventRowDeleted   = "doc:row_deleted"
	EventSaved        = "doc:saved"
	EventMessage      = "doc:message"
)

// EventEmitter decouples the document and coordinator from whatever renders
// notifications (terminal status line, desktop toast). Implementations must
// tolerate being called from the coordinator's save goroutine.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// UserMessage is the payload for EventMessage emissions.
type UserMessage struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// MockEmitter is a test-friendly EventEmitter that records all calls. It is
// safe for use from the coordinator's save goroutine.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
}

// ByName returns all recorded events with the given name.
func (m *MockEmitter) ByName(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
