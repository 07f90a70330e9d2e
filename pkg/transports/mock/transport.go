package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/lyra/pkg/frames"
)

// Transport is an in-memory transport for tests. Push injects inbound
// frames; Sent and ClosedStreams expose what the code under test did.
type Transport struct {
	recvCh chan frames.Frame

	mu            sync.Mutex
	sent          []frames.Frame
	closedStreams []string
	stopped       bool
}

func New() *Transport {
	return &Transport{
		recvCh: make(chan frames.Frame, 128),
	}
}

func (t *Transport) Name() string { return "mock" }

func (t *Transport) Start(ctx context.Context) error { return nil }

func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	t.stopped = true
	close(t.recvCh)
	return nil
}

func (t *Transport) Recv() <-chan frames.Frame { return t.recvCh }

func (t *Transport) Send(f frames.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, f)
	return nil
}

func (t *Transport) CloseStream(streamID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closedStreams = append(t.closedStreams, streamID)
	return nil
}

// Push injects one inbound frame as if received from the wire.
func (t *Transport) Push(f frames.Frame) {
	t.recvCh <- f
}

// Sent returns a snapshot of frames written via Send.
func (t *Transport) Sent() []frames.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]frames.Frame, len(t.sent))
	copy(out, t.sent)
	return out
}

// ClosedStreams returns every stream id passed to CloseStream, in order.
func (t *Transport) ClosedStreams() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.closedStreams))
	copy(out, t.closedStreams)
	return out
}
