package events

import (
	"time"
)

// Event is a fact about a run, appended to the run's stream
type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

// Handler receives events after they are stored
type Handler interface {
	Handle(event Event) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(event Event) error

func (f HandlerFunc) Handle(event Event) error {
	return f(event)
}

// EventStore is an append-only log of run events partitioned into streams.
// AppendEvent stores first and dispatches afterwards, so a failing handler
// never loses the event; handler errors come back joined.
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler Handler) error
}

// Record is the stored form of an event. StreamVersion counts from 1 within
// its stream, Position from 0 across the whole store.
type Record struct {
	EventType     string    `json:"type"`
	Stream        string    `json:"stream_id"`
	Payload       any       `json:"data"`
	At            time.Time `json:"timestamp"`
	StreamVersion int       `json:"version"`
	Position      int       `json:"position"`
}

func (r Record) Type() string         { return r.EventType }
func (r Record) StreamID() string     { return r.Stream }
func (r Record) Data() any            { return r.Payload }
func (r Record) Timestamp() time.Time { return r.At }
func (r Record) Version() int         { return r.StreamVersion }

// NewEvent builds an unversioned event; the store assigns version and position
func NewEvent(eventType, streamID string, data any) Event {
	return Record{
		EventType: eventType,
		Stream:    streamID,
		Payload:   data,
		At:        time.Now().UTC(),
	}
}
