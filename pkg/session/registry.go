package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harunnryd/lyra/pkg/frames"
	"github.com/harunnryd/lyra/pkg/logging"
	"github.com/harunnryd/lyra/pkg/transports"
)

// Factory builds a coordinator for one accepted call. onClose must be
// wired into the coordinator's config so the registry entry is removed on
// teardown.
type Factory func(ctx context.Context, streamID, callSID, traceID string, onClose func(string)) (*Coordinator, error)

// Registry owns the stream-id to coordinator mapping: entries are created
// on call start, removed on teardown, and never iterated by unrelated
// code. It is the single consumer of the transport's receive channel and
// routes each frame to its owning coordinator.
type Registry struct {
	transport transports.Transport
	factory   Factory
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Coordinator
}

func NewRegistry(transport transports.Transport, factory Factory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		transport: transport,
		factory:   factory,
		logger:    logging.NewComponentLogger(logger, "registry"),
		sessions:  make(map[string]*Coordinator),
	}
}

// Run consumes transport frames until ctx is canceled or the transport's
// receive channel closes, then tears down every remaining session.
func (r *Registry) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			r.CloseAll("shutdown")
			return
		case f, ok := <-r.transport.Recv():
			if !ok {
				r.CloseAll("transport_closed")
				return
			}
			r.route(ctx, f)
		}
	}
}

func (r *Registry) route(ctx context.Context, f frames.Frame) {
	meta := f.Meta()
	streamID := meta[frames.MetaStreamID]
	switch f.Kind() {
	case frames.KindSystem:
		sf := f.(frames.SystemFrame)
		switch sf.Name() {
		case frames.SystemCallStart:
			r.open(ctx, streamID, meta)
		case frames.SystemCallEnd:
			reason := meta[frames.MetaCallEndReason]
			if reason == "" {
				reason = "completed"
			}
			r.close(streamID, reason)
		}
	case frames.KindAudio:
		c := r.lookup(streamID)
		if c == nil {
			r.logger.Debug("audio_for_unknown_stream", "stream_id", streamID)
			return
		}
		c.HandleAudio(f.(frames.AudioFrame))
	case frames.KindControl:
		cf := f.(frames.ControlFrame)
		if cf.Code() != frames.ControlMark {
			return
		}
		if c := r.lookup(streamID); c != nil {
			c.HandleMark(cf)
		}
	}
}

func (r *Registry) open(ctx context.Context, streamID string, meta map[string]string) {
	if streamID == "" {
		return
	}
	if existing := r.lookup(streamID); existing != nil {
		r.logger.Warn("duplicate_call_start", "stream_id", streamID)
		return
	}
	c, err := r.factory(ctx, streamID, meta[frames.MetaCallSID], meta[frames.MetaTraceID], r.remove)
	if err != nil {
		r.logger.Error("session_create_error",
			"stream_id", streamID,
			"error", err.Error())
		return
	}
	r.mu.Lock()
	r.sessions[streamID] = c
	r.mu.Unlock()
	if err := c.Start(ctx); err != nil {
		// Teardown already ran inside Start; the OnClose hook removed the
		// registry entry.
		return
	}
	r.logger.Info("session_started",
		"stream_id", streamID,
		"call_sid", meta[frames.MetaCallSID],
		"trace_id", meta[frames.MetaTraceID])
}

func (r *Registry) close(streamID, reason string) {
	c := r.lookup(streamID)
	if c == nil {
		return
	}
	c.Teardown(reason)
}

// CloseAll tears down every live session with the given reason.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	all := make([]*Coordinator, 0, len(r.sessions))
	for _, c := range r.sessions {
		all = append(all, c)
	}
	r.mu.Unlock()
	for _, c := range all {
		c.Teardown(reason)
	}
}

func (r *Registry) lookup(streamID string) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[streamID]
}

func (r *Registry) remove(streamID string) {
	r.mu.Lock()
	delete(r.sessions, streamID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
