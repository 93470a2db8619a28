package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeError             EventType = "error"
	EventTypeInterrupt         EventType = "interrupt"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// EventMetadata correlates streaming events with the send that produced
// them. ID is the ephemeral placeholder handle, never a persisted identity.
type EventMetadata struct {
	ID             uuid.UUID `json:"message_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Model          string    `json:"model,omitempty"`
	DurationMs     *int64    `json:"duration_ms,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.ConversationID != "" {
		e.Str("conversation_id", em.ConversationID)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON this event was deserialized from, if any
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Metadata_: metadata},
	}
}

type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the full accumulated text so far, so consumers can
	// re-render idempotently from any single event.
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl:  EventImpl{Type_: EventTypePartialCompletion, Metadata_: metadata},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: metadata},
		Text:      text,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: metadata},
		Text:      text,
	}
}

var _ Event = &EventStart{}
var _ Event = &EventPartialCompletion{}
var _ Event = &EventFinal{}
var _ Event = &EventError{}
var _ Event = &EventInterrupt{}

// NewEventFromJSON decodes an event published through a PublisherManager
// back into its concrete type.
func NewEventFromJSON(b []byte) (Event, error) {
	var head EventImpl
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}

	decode := func(e Event) (Event, error) {
		if err := json.Unmarshal(b, e); err != nil {
			return nil, err
		}
		return e, nil
	}

	var (
		ret Event
		err error
	)
	switch head.Type_ {
	case EventTypeStart:
		ret, err = decode(&EventStart{})
	case EventTypePartialCompletion:
		ret, err = decode(&EventPartialCompletion{})
	case EventTypeFinal:
		ret, err = decode(&EventFinal{})
	case EventTypeError:
		ret, err = decode(&EventError{})
	case EventTypeInterrupt:
		ret, err = decode(&EventInterrupt{})
	default:
		return nil, errors.Errorf("unknown event type %q", head.Type_)
	}
	if err != nil {
		return nil, err
	}

	switch e := ret.(type) {
	case *EventStart:
		e.payload = b
	case *EventPartialCompletion:
		e.payload = b
	case *EventFinal:
		e.payload = b
	case *EventError:
		e.payload = b
	case *EventInterrupt:
		e.payload = b
	}
	return ret, nil
}
