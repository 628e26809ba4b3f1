// Package realtime delivers live events to connected browsers over
// WebSockets.
//
// Each instance keeps a registry of its own connections keyed by user id.
// When a NATS connection is configured, events are published to a subject
// and every instance (this one included) delivers them to its local
// connections; otherwise delivery stays in process. Delivery is best effort:
// a slow client whose send buffer is full loses the event.
package realtime

import "encoding/json"

// Event types sent to clients.
const (
	EventMessageNew  = "message:new"
	EventMessageRead = "message:read"
	EventTyping      = "typing"
	EventPong        = "pong"
	EventError       = "error"
)

// Event is the envelope written to and read from sockets.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent encodes data into an Event.
func NewEvent(typ string, data any) (Event, error) {
	if data == nil {
		return Event{Type: typ}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: b}, nil
}

// encode returns the wire form of e.
func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}
