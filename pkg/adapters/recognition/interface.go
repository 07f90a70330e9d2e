package recognition

import (
	"context"
)

// EventKind discriminates recognition stream events.
type EventKind string

const (
	EventInterim EventKind = "interim"
	EventFinal   EventKind = "final"
	EventError   EventKind = "error"
	EventClosed  EventKind = "closed"
)

// Event is one recognition stream event. Text is set for interim/final,
// Err for error events.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Stream defines the contract for any streaming recognition vendor.
//
// Start is asynchronous: the underlying session may take arbitrary time to
// become usable. Ready returns a channel closed exactly once when the
// session accepts audio; callers must not poll for readiness.
type Stream interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the recognition connection.
	Start(ctx context.Context) error
	// Ready is closed once the session accepts audio.
	Ready() <-chan struct{}
	// SendAudio sends raw audio bytes to the recognition service.
	SendAudio(data []byte) error
	// Finish signals end of audio so pending results can be finalized.
	Finish() error
	// Close shuts down the recognition connection.
	Close() error
	// Events returns the stream of recognition events. The channel is
	// closed after a terminal error or closed event.
	Events() <-chan Event
}

// Config contains vendor-agnostic recognition configuration.
type Config struct {
	StreamID   string
	CallSID    string
	TraceID    string
	SampleRate int
	Encoding   string
	Language   string
	Interim    bool
}
