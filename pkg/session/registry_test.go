package session

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/lyra/pkg/frames"
	"github.com/harunnryd/lyra/pkg/providers/mock"
	transportmock "github.com/harunnryd/lyra/pkg/transports/mock"
)

func newTestRegistry(transport *transportmock.Transport, recognizer *mock.Recognizer) *Registry {
	factory := func(ctx context.Context, streamID, callSID, traceID string, onClose func(string)) (*Coordinator, error) {
		return NewCoordinator(Config{
			StreamID:    streamID,
			CallSID:     callSID,
			TraceID:     traceID,
			Recognizer:  recognizer,
			Generator:   &mock.Generator{Reply: "ok"},
			Synthesizer: &mock.Synthesizer{},
			Transport:   transport,
			OnClose:     onClose,
		}), nil
	}
	return NewRegistry(transport, factory, nil)
}

func callStart(streamID string) frames.SystemFrame {
	meta := map[string]string{
		frames.MetaCallSID: "CA" + streamID,
		frames.MetaTraceID: "trace-" + streamID,
	}
	return frames.NewSystemFrame(streamID, time.Now().UnixNano(), frames.SystemCallStart, meta)
}

func callEnd(streamID, reason string) frames.SystemFrame {
	meta := map[string]string{frames.MetaCallEndReason: reason}
	return frames.NewSystemFrame(streamID, time.Now().UnixNano(), frames.SystemCallEnd, meta)
}

func TestRegistryOpensSessionOnCallStart(t *testing.T) {
	transport := transportmock.New()
	recognizer := mock.NewRecognizer()
	r := newTestRegistry(transport, recognizer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	transport.Push(callStart("MZ1"))
	waitFor(t, func() bool { return r.Len() == 1 })

	recognizer.SignalReady()
	transport.Push(frames.NewAudioFrame("MZ1", time.Now().UnixNano(), []byte("pcm"), 8000, 1, nil))
	waitFor(t, func() bool { return len(recognizer.Audio()) == 1 })
}

func TestRegistryRemovesSessionOnCallEnd(t *testing.T) {
	transport := transportmock.New()
	recognizer := mock.NewRecognizer()
	r := newTestRegistry(transport, recognizer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	transport.Push(callStart("MZ1"))
	waitFor(t, func() bool { return r.Len() == 1 })

	transport.Push(callEnd("MZ1", "completed"))
	waitFor(t, func() bool { return r.Len() == 0 })

	if got := recognizer.CloseCount(); got != 1 {
		t.Fatalf("recognizer closed %d times, want 1", got)
	}
	if got := transport.ClosedStreams(); len(got) != 1 || got[0] != "MZ1" {
		t.Fatalf("closed streams = %v, want [MZ1]", got)
	}
}

func TestRegistryIgnoresDuplicateCallStart(t *testing.T) {
	transport := transportmock.New()
	recognizer := mock.NewRecognizer()
	r := newTestRegistry(transport, recognizer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	transport.Push(callStart("MZ1"))
	transport.Push(callStart("MZ1"))
	waitFor(t, func() bool { return r.Len() == 1 })
	time.Sleep(50 * time.Millisecond)
	if r.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", r.Len())
	}
}

func TestRegistryDropsAudioForUnknownStream(t *testing.T) {
	transport := transportmock.New()
	recognizer := mock.NewRecognizer()
	r := newTestRegistry(transport, recognizer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	transport.Push(frames.NewAudioFrame("MZunknown", time.Now().UnixNano(), []byte("pcm"), 8000, 1, nil))
	transport.Push(callStart("MZ1"))
	waitFor(t, func() bool { return r.Len() == 1 })

	if got := len(recognizer.Audio()); got != 0 {
		t.Fatalf("audio for unknown stream reached a recognizer: %d frames", got)
	}
}

func TestRegistryClosesAllOnTransportClose(t *testing.T) {
	transport := transportmock.New()
	recognizer := mock.NewRecognizer()
	r := newTestRegistry(transport, recognizer)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	transport.Push(callStart("MZ1"))
	waitFor(t, func() bool { return r.Len() == 1 })

	if err := transport.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	<-done
	if r.Len() != 0 {
		t.Fatalf("sessions after transport close = %d, want 0", r.Len())
	}
}
