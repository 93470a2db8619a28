package engine

import (
	"github.com/go-go-golems/marionette/pkg/events"
)

// Config carries cross-cutting engine wiring, currently the event sinks a
// generation publishes through.
type Config struct {
	EventSinks []events.EventSink
}

type Option func(*Config) error

func WithSink(sink events.EventSink) Option {
	return func(c *Config) error {
		c.EventSinks = append(c.EventSinks, sink)
		return nil
	}
}

func NewConfig() *Config {
	return &Config{}
}

func ApplyOptions(c *Config, options ...Option) error {
	for _, option := range options {
		if err := option(c); err != nil {
			return err
		}
	}
	return nil
}
