package ws

import (
	"encoding/json"
	"time"
)

// Frame types a client may send.
const (
	EventTypePing = "ping"
)

// Frame types only the server sends, next to the domain event kinds.
const (
	EventTypePong  = "pong"
	EventTypeError = "error"
)

// Event is the envelope of every websocket frame.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server to client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	evt := &Event{Type: eventType, Timestamp: time.Now().Unix()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		evt.Payload = data
	}
	return evt, nil
}

// encodeEvent builds the wire frame for one event.
func encodeEvent(eventType string, payload any) ([]byte, error) {
	evt, err := NewEvent(eventType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(evt)
}
