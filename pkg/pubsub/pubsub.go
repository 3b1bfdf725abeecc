package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is a message published on the bus.
// ID is unique per publish so subscribers can drop redeliveries.
type Event struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewEvent(origin, eventType, roomID string, payload any) (*Event, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	return &Event{
		ID:        ulid.Make().String(),
		Origin:    origin,
		Type:      eventType,
		RoomID:    roomID,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

type Subscriber interface {
	// Subscribe returns a stream of events that is closed when ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
}

type PubSub interface {
	Publisher
	Subscriber
}
