package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// Event represents a message published to the event bus.
type Event struct {
	Type      string          `json:"type"`
	RecordID  string          `json:"record_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp. A nil payload is
// left empty.
func NewEvent(eventType, recordID string, payload interface{}) (*Event, error) {
	evt := &Event{
		Type:      eventType,
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
	}
	if payload == nil {
		return evt, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	evt.Payload = data
	return evt, nil
}

// UnmarshalPayload unmarshals the event payload into the given value.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber subscribes to every channel matching a pattern. The returned
// channel closes when ctx ends or the subscription is torn down.
type Subscriber interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
}

// PubSub combines Publisher and Subscriber interfaces.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
