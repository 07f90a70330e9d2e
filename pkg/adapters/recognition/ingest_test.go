package recognition

import (
	"context"
	"sync"
	"testing"
	"time"
)

type scriptedStream struct {
	mu      sync.Mutex
	readyCh chan struct{}
	events  chan Event
	sent    [][]byte
	closed  bool
}

func newScriptedStream() *scriptedStream {
	return &scriptedStream{
		readyCh: make(chan struct{}),
		events:  make(chan Event, 16),
	}
}

func (s *scriptedStream) Name() string                    { return "scripted" }
func (s *scriptedStream) Start(ctx context.Context) error { return nil }
func (s *scriptedStream) Ready() <-chan struct{}          { return s.readyCh }
func (s *scriptedStream) Finish() error                   { return nil }
func (s *scriptedStream) Events() <-chan Event            { return s.events }

func (s *scriptedStream) SendAudio(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.sent = append(s.sent, buf)
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedStream) sentFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *scriptedStream) signalReady() { close(s.readyCh) }

func TestIngestBuffersUntilReadyAndFlushesInOrder(t *testing.T) {
	stream := newScriptedStream()
	ing := NewIngest(stream, 10, nil)
	if err := ing.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	for _, b := range []byte{1, 2, 3} {
		if err := ing.SendAudio([]byte{b}); err != nil {
			t.Fatalf("send error: %v", err)
		}
	}
	if got := len(stream.sentFrames()); got != 0 {
		t.Fatalf("expected no frames before readiness, got %d", got)
	}
	if got := ing.PendingFrames(); got != 3 {
		t.Fatalf("expected 3 pending frames, got %d", got)
	}

	stream.signalReady()
	waitFor(t, func() bool { return len(stream.sentFrames()) == 3 })

	sent := stream.sentFrames()
	for i, want := range []byte{1, 2, 3} {
		if sent[i][0] != want {
			t.Fatalf("frame %d out of order: got %d want %d", i, sent[i][0], want)
		}
	}

	// Post-readiness audio goes straight through.
	if err := ing.SendAudio([]byte{4}); err != nil {
		t.Fatalf("send error: %v", err)
	}
	if got := stream.sentFrames(); len(got) != 4 || got[3][0] != 4 {
		t.Fatalf("expected direct forward after readiness, got %v", got)
	}
}

func TestIngestDropsOldestOnOverflow(t *testing.T) {
	stream := newScriptedStream()
	ing := NewIngest(stream, 3, nil)
	if err := ing.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	for _, b := range []byte{1, 2, 3, 4, 5} {
		_ = ing.SendAudio([]byte{b})
	}
	if got := ing.DroppedFrames(); got != 2 {
		t.Fatalf("expected 2 dropped frames, got %d", got)
	}

	stream.signalReady()
	waitFor(t, func() bool { return len(stream.sentFrames()) == 3 })

	sent := stream.sentFrames()
	for i, want := range []byte{3, 4, 5} {
		if sent[i][0] != want {
			t.Fatalf("frame %d: got %d want %d", i, sent[i][0], want)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
