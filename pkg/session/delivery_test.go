package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/lyra/pkg/providers/mock"
)

type sentRecorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *sentRecorder) send(audio []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, string(audio))
	return nil
}

func (r *sentRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	copy(out, r.sent)
	return out
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
	t.Fatal("condition not met before deadline")
}

func TestDeliveryQueueSendsInEnqueueOrder(t *testing.T) {
	releaseFirst := make(chan struct{})
	synth := &mock.Synthesizer{
		SynthesizeFunc: func(ctx context.Context, text string) ([]byte, error) {
			if text == "first" {
				<-releaseFirst
			}
			return []byte(text), nil
		},
	}
	rec := &sentRecorder{}
	q := NewDeliveryQueue(DeliveryQueueConfig{
		StreamID:    "MZ1",
		Synthesizer: synth,
		Send:        rec.send,
	})
	q.Start(context.Background())
	defer q.Close()

	q.Enqueue("first")
	q.Enqueue("second")

	// second resolves immediately; first is still pending, so nothing may
	// be sent yet.
	waitFor(t, func() bool {
		return len(synth.Texts()) == 2
	})
	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("sent before first slot resolved: %v", got)
	}

	close(releaseFirst)
	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })
	got := rec.snapshot()
	if got[0] != "first" || got[1] != "second" {
		t.Fatalf("send order = %v, want [first second]", got)
	}
}

func TestDeliveryQueueDropsFailedSlotWithoutBlocking(t *testing.T) {
	synth := &mock.Synthesizer{
		SynthesizeFunc: func(ctx context.Context, text string) ([]byte, error) {
			if text == "two" {
				return nil, errors.New("synthesis boom")
			}
			return []byte(text), nil
		},
	}
	rec := &sentRecorder{}
	q := NewDeliveryQueue(DeliveryQueueConfig{
		StreamID:    "MZ1",
		Synthesizer: synth,
		Send:        rec.send,
	})
	q.Start(context.Background())
	defer q.Close()

	q.Enqueue("one")
	q.Enqueue("two")
	q.Enqueue("three")

	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })
	got := rec.snapshot()
	if got[0] != "one" || got[1] != "three" {
		t.Fatalf("send order = %v, want [one three]", got)
	}
}

func TestDeliveryQueueIgnoresEnqueueAfterClose(t *testing.T) {
	synth := &mock.Synthesizer{}
	rec := &sentRecorder{}
	q := NewDeliveryQueue(DeliveryQueueConfig{
		StreamID:    "MZ1",
		Synthesizer: synth,
		Send:        rec.send,
	})
	q.Start(context.Background())
	q.Close()

	q.Enqueue("late")
	time.Sleep(50 * time.Millisecond)
	if len(synth.Texts()) != 0 {
		t.Fatal("synthesis started after close")
	}
}

func TestDeliveryQueueCloseIsIdempotent(t *testing.T) {
	q := NewDeliveryQueue(DeliveryQueueConfig{
		StreamID:    "MZ1",
		Synthesizer: &mock.Synthesizer{},
		Send:        func([]byte) error { return nil },
	})
	q.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Close()
		}()
	}
	wg.Wait()
}
