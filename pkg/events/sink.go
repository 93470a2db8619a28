package events

import (
	"sync"
)

// EventSink is a destination for generation events. Engines publish every
// start/partial/final/error through their configured sinks.
type EventSink interface {
	PublishEvent(event Event) error
}

// PublisherSink bridges events into a PublisherManager under a fixed topic.
type PublisherSink struct {
	manager *PublisherManager
}

func NewPublisherSink(manager *PublisherManager) *PublisherSink {
	return &PublisherSink{manager: manager}
}

func (s *PublisherSink) PublishEvent(event Event) error {
	return s.manager.Publish(event)
}

var _ EventSink = (*PublisherSink)(nil)

// NullSink discards all events.
type NullSink struct{}

func (NullSink) PublishEvent(Event) error {
	return nil
}

var _ EventSink = NullSink{}

// CollectorSink retains published events in order; test support.
type CollectorSink struct {
	mu     sync.Mutex
	events []Event
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (s *CollectorSink) PublishEvent(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *CollectorSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Event, len(s.events))
	copy(ret, s.events)
	return ret
}

var _ EventSink = (*CollectorSink)(nil)
