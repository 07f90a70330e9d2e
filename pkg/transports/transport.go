package transports

import (
	"context"

	"github.com/harunnryd/lyra/pkg/frames"
)

// Transport defines a vendor-agnostic I/O boundary for audio/control
// frames. Implementations are responsible for their own network lifecycle
// and own the duplex connection for each call exclusively.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan frames.Frame
	Send(frames.Frame) error
}

// StreamCloser allows transports to release a single call's connection
// during session teardown without stopping the whole transport.
type StreamCloser interface {
	CloseStream(streamID string) error
}

// ReadyReporter allows transports to expose readiness metadata (e.g., webhook URLs).
// Implementations are optional and used for informational logging only.
type ReadyReporter interface {
	ReadyFields() map[string]any
}
