package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a scene change notification. Collaborators outside the core (the
// renderer, the editor UI) subscribe by event type; the core publishes after
// each successful mutation.
type Event struct {
	ID        string
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus is an in-memory publish/subscribe hub keyed by event type.
type Bus struct {
	mu sync.RWMutex
	// handlers: eventType -> subID -> handler
	handlers map[string]map[string]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string]map[string]Handler)}
}

// Subscribe registers a handler for one event type and returns a cancel
// function. Cancel is idempotent.
func (b *Bus) Subscribe(eventType string, h Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	id := uuid.NewString()
	b.handlers[eventType][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.handlers[eventType]; ok {
			delete(m, id)
		}
	}
}

// Publish delivers an event to every handler subscribed to its type.
func (b *Bus) Publish(eventType, source string, data any) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		targets = append(targets, h)
	}
	b.mu.RUnlock()
	for _, h := range targets {
		h(ev)
	}
}
