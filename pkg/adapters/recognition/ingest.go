package recognition

import (
	"context"
	"log/slog"
	"sync"
)

const defaultMaxPending = 400 // 8s of 20ms telephony frames

// Ingest wraps a Stream and buffers audio submitted before the stream
// signals readiness. Buffered frames are flushed in arrival order the
// instant readiness is observed. The buffer is bounded; on overflow the
// oldest frames are dropped first.
type Ingest struct {
	stream Stream
	logger *slog.Logger

	mu      sync.Mutex
	ready   bool
	pending [][]byte
	max     int
	dropped int
}

// NewIngest wraps stream with a pre-readiness buffer of at most maxPending
// frames. maxPending <= 0 selects the default bound.
func NewIngest(stream Stream, maxPending int, logger *slog.Logger) *Ingest {
	if maxPending <= 0 {
		maxPending = defaultMaxPending
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingest{
		stream: stream,
		max:    maxPending,
		logger: logger,
	}
}

func (i *Ingest) Name() string { return i.stream.Name() }

// Start starts the underlying stream and watches for readiness.
func (i *Ingest) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := i.stream.Start(ctx); err != nil {
		return err
	}
	go func() {
		select {
		case <-i.stream.Ready():
			i.flush()
		case <-ctx.Done():
		}
	}()
	return nil
}

// SendAudio forwards audio to the stream, buffering while it is not yet
// ready. The buffered frames never reorder relative to later sends: the
// buffer lock is held across the flush.
func (i *Ingest) SendAudio(data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ready {
		return i.stream.SendAudio(data)
	}
	if len(i.pending) >= i.max {
		i.pending = i.pending[1:]
		i.dropped++
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	i.pending = append(i.pending, buf)
	return nil
}

func (i *Ingest) flush() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ready {
		return
	}
	for _, chunk := range i.pending {
		if err := i.stream.SendAudio(chunk); err != nil {
			i.logger.Error("pending_audio_flush_error", "error", err.Error())
			break
		}
	}
	if i.dropped > 0 {
		i.logger.Warn("pending_audio_overflow",
			"dropped_frames", i.dropped,
			"max_frames", i.max)
	}
	i.pending = nil
	i.ready = true
}

// PendingFrames reports the number of buffered frames (for tests/metrics).
func (i *Ingest) PendingFrames() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.pending)
}

// DroppedFrames reports how many frames were dropped to the buffer bound.
func (i *Ingest) DroppedFrames() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dropped
}

func (i *Ingest) Finish() error { return i.stream.Finish() }

func (i *Ingest) Close() error { return i.stream.Close() }

func (i *Ingest) Events() <-chan Event { return i.stream.Events() }
