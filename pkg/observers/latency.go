package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/lyra/pkg/metrics"
)

// LatencyObserver tracks per-session timing from first inbound audio to
// first delivered reply and logs the measurements when the session ends.
type LatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*trace
	log    *slog.Logger
}

type trace struct {
	audioIn    time.Time
	finalText  time.Time
	firstReply time.Time
	traceID    string
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		traces: make(map[string]*trace),
		log:    log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	streamID := ""
	if ev.Tags != nil {
		streamID = ev.Tags["stream_id"]
	}
	if streamID == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.traces[streamID]
	if t == nil {
		t = &trace{}
		o.traces[streamID] = t
	}
	switch ev.Name {
	case "audio_in":
		if t.audioIn.IsZero() {
			t.audioIn = ev.Time
		}
		if t.traceID == "" && ev.Tags != nil {
			t.traceID = ev.Tags["trace_id"]
		}
	case "transcript_final":
		if t.finalText.IsZero() {
			t.finalText = ev.Time
		}
	case "reply_sent":
		if t.firstReply.IsZero() {
			t.firstReply = ev.Time
		}
	case "session_end":
		o.logSessionLocked(streamID, t)
		delete(o.traces, streamID)
	}
}

func (o *LatencyObserver) logSessionLocked(streamID string, t *trace) {
	o.log.Info("session_latency",
		"stream_id", streamID,
		"trace_id", t.traceID,
		"final_ms", durationMs(t.audioIn, t.finalText),
		"first_reply_ms", durationMs(t.finalText, t.firstReply),
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
