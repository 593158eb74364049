package events

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// InMemoryEventStore keeps one ordered log plus the log positions of each
// stream. Handlers run on the appending goroutine once the lock is released.
type InMemoryEventStore struct {
	mu       sync.RWMutex
	log      []Record
	streams  map[string][]int
	handlers map[string][]Handler
}

var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:  make(map[string][]int),
		handlers: make(map[string][]Handler),
	}
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	if streamID == "" {
		return errors.New("stream id cannot be empty")
	}
	if event == nil || event.Type() == "" {
		return errors.New("event type cannot be empty")
	}

	s.mu.Lock()
	rec := Record{
		EventType:     event.Type(),
		Stream:        streamID,
		Payload:       event.Data(),
		At:            event.Timestamp(),
		StreamVersion: len(s.streams[streamID]) + 1,
		Position:      len(s.log),
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	s.log = append(s.log, rec)
	s.streams[streamID] = append(s.streams[streamID], rec.Position)
	targets := s.handlersFor(rec.EventType)
	s.mu.Unlock()

	var errs []error
	for _, h := range targets {
		if err := h.Handle(rec); err != nil {
			errs = append(errs, fmt.Errorf("handling %s at position %d: %w", rec.EventType, rec.Position, err))
		}
	}
	return errors.Join(errs...)
}

// handlersFor must be called with the lock held
func (s *InMemoryEventStore) handlersFor(eventType string) []Handler {
	out := append([]Handler(nil), s.handlers[eventType]...)
	if eventType != AllEvents {
		out = append(out, s.handlers[AllEvents]...)
	}
	return out
}

// ReadEvents returns the stream's events from fromVersion on. Versions below 1 read from the start.
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := s.streams[streamID]
	fromVersion = max(fromVersion, 1)
	if fromVersion > len(positions) {
		return []Event{}, nil
	}

	out := make([]Event, 0, len(positions)-fromVersion+1)
	for _, p := range positions[fromVersion-1:] {
		out = append(out, s.log[p])
	}
	return out, nil
}

// ReadAllEvents returns every event from fromPosition on, in append order
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromPosition = max(fromPosition, 0)
	if fromPosition >= len(s.log) {
		return []Event{}, nil
	}

	out := make([]Event, 0, len(s.log)-fromPosition)
	for _, rec := range s.log[fromPosition:] {
		out = append(out, rec)
	}
	return out, nil
}

// Subscribe registers handler for the given event types; AllEvents matches every type.
func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	if len(eventTypes) == 0 {
		return errors.New("at least one event type is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range eventTypes {
		s.handlers[t] = append(s.handlers[t], handler)
	}
	return nil
}
