package session

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/lyra/pkg/adapters/recognition"
	"github.com/harunnryd/lyra/pkg/adapters/synthesis"
	"github.com/harunnryd/lyra/pkg/errorsx"
	"github.com/harunnryd/lyra/pkg/frames"
	"github.com/harunnryd/lyra/pkg/generation"
	"github.com/harunnryd/lyra/pkg/logging"
	"github.com/harunnryd/lyra/pkg/metrics"
	"github.com/harunnryd/lyra/pkg/redact"
	"github.com/harunnryd/lyra/pkg/resilience"
	"github.com/harunnryd/lyra/pkg/transports"
)

// State is the coordinator lifecycle state.
type State int32

const (
	StateActive State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const defaultFallbackReply = "I'm sorry, I'm having trouble responding right now."

// Config wires one call's collaborators into a Coordinator.
type Config struct {
	StreamID string
	CallSID  string
	TraceID  string

	Recognizer  recognition.Stream
	Generator   generation.Generator
	Synthesizer synthesis.Synthesizer
	Transport   transports.Transport

	SystemPrompt  string
	FallbackReply string

	MaxHistory      int
	PendingAudioMax int
	ReplyQueueDepth int
	MinSendGap      time.Duration
	SampleRate      int

	Observer metrics.Observer
	Logger   *slog.Logger

	// OnClose is invoked exactly once after teardown completes.
	OnClose func(streamID string)
}

// Coordinator owns one call end to end: it feeds inbound audio to the
// recognition stream (buffered until the stream is ready), reduces
// transcripts to deltas, keeps the bounded dialogue history, requests one
// generated reply per finalized utterance, and hands replies to the
// delivery queue. All termination triggers funnel into the idempotent
// Teardown.
type Coordinator struct {
	id  string
	cfg Config

	ingest   *recognition.Ingest
	tracker  DeltaTracker
	history  *History
	delivery *DeliveryQueue

	obs    metrics.Observer
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32

	firstAudio atomic.Bool
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.FallbackReply == "" {
		cfg.FallbackReply = defaultFallbackReply
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 8000
	}
	obs := cfg.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}
	logger := logging.NewComponentLogger(base, "session").With(
		slog.String("stream_id", cfg.StreamID),
	)
	c := &Coordinator{
		id:      uuid.NewString(),
		cfg:     cfg,
		history: NewHistory(cfg.SystemPrompt, cfg.MaxHistory),
		obs:     obs,
		logger:  logger,
	}
	c.ingest = recognition.NewIngest(cfg.Recognizer, cfg.PendingAudioMax, logger)
	c.delivery = NewDeliveryQueue(DeliveryQueueConfig{
		StreamID:    cfg.StreamID,
		Synthesizer: cfg.Synthesizer,
		Send:        c.sendAudio,
		Depth:       cfg.ReplyQueueDepth,
		MinSendGap:  cfg.MinSendGap,
		Observer:    obs,
		Logger:      logger,
	})
	return c
}

func (c *Coordinator) ID() string       { return c.id }
func (c *Coordinator) StreamID() string { return c.cfg.StreamID }

func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Start opens the recognition session and launches the event loop.
func (c *Coordinator) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.delivery.Start(c.ctx)
	if err := c.ingest.Start(c.ctx); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonRecognitionConnect)
		c.logger.Error("recognition_start_error",
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		c.Teardown("recognition_error")
		return err
	}
	c.record("session_start")
	go c.eventLoop()
	return nil
}

// HandleAudio forwards one inbound audio frame to recognition. Frames
// arriving before recognition readiness are buffered in arrival order.
func (c *Coordinator) HandleAudio(af frames.AudioFrame) {
	if c.State() != StateActive {
		return
	}
	if c.firstAudio.CompareAndSwap(false, true) {
		c.record("audio_in")
	}
	if err := c.ingest.SendAudio(af.RawPayload()); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonRecognitionSend)
		c.logger.Error("recognition_send_error",
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
	}
}

// HandleMark records a playback mark echoed back by the transport.
func (c *Coordinator) HandleMark(cf frames.ControlFrame) {
	c.logger.Debug("mark_received",
		"mark_name", cf.Meta()[frames.MetaMarkName])
}

func (c *Coordinator) eventLoop() {
	events := c.ingest.Events()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.Teardown("recognition_closed")
				return
			}
			switch ev.Kind {
			case recognition.EventInterim:
				delta := c.tracker.Interim(ev.Text)
				c.logger.Debug("transcript_interim",
					"delta", redact.Text(delta))
			case recognition.EventFinal:
				delta := c.tracker.Final(ev.Text)
				if strings.TrimSpace(ev.Text) == "" {
					continue
				}
				c.logger.Info("transcript_final",
					"text", redact.Text(ev.Text),
					"delta", redact.Text(delta))
				c.record("transcript_final")
				go c.respond(ev.Text)
			case recognition.EventError:
				err := errorsx.Wrap(ev.Err, errorsx.ReasonRecognitionStream)
				c.logger.Error("recognition_stream_error",
					"reason_code", string(errorsx.Reason(err)),
					"error", err.Error())
				c.Teardown("recognition_error")
				return
			case recognition.EventClosed:
				c.Teardown("recognition_closed")
				return
			}
		}
	}
}

// respond runs once per finalized utterance. Generation failure is never
// fatal to the call: the fixed fallback reply is spoken instead, and the
// canned text is not recorded as an assistant turn.
func (c *Coordinator) respond(utterance string) {
	c.history.AppendUser(utterance)
	reply, err := c.cfg.Generator.Generate(c.ctx, c.history.Turns())
	if err != nil {
		reason := errorsx.ReasonGenerate
		if resilience.IsRateLimit(err) {
			reason = errorsx.ReasonGenerateRateLimit
		}
		err = errorsx.Wrap(err, reason)
		c.logger.Error("generate_error",
			"reason_code", string(errorsx.Reason(err)),
			"error", err.Error())
		reply = c.cfg.FallbackReply
	} else {
		c.history.AppendAssistant(reply)
	}
	if c.State() != StateActive {
		return
	}
	c.delivery.Enqueue(reply)
}

func (c *Coordinator) sendAudio(audio []byte) error {
	meta := map[string]string{
		frames.MetaCallSID: c.cfg.CallSID,
		frames.MetaTraceID: c.cfg.TraceID,
		frames.MetaTrack:   "outbound",
		frames.MetaSource:  "synthesis",
	}
	af := frames.NewAudioFrame(c.cfg.StreamID, time.Now().UnixNano(), audio, c.cfg.SampleRate, 1, meta)
	if err := c.cfg.Transport.Send(af); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

// Teardown releases the recognition handle and the connection handle
// exactly once. Safe to call concurrently from any trigger; all calls
// after the first are no-ops.
func (c *Coordinator) Teardown(reason string) {
	if !c.state.CompareAndSwap(int32(StateActive), int32(StateClosing)) {
		return
	}
	c.logger.Info("session_closing", "reason", reason)
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.ingest.Close(); err != nil {
		c.logger.Warn("recognition_close_error", "error", err.Error())
	}
	c.delivery.Close()
	if closer, ok := c.cfg.Transport.(transports.StreamCloser); ok {
		if err := closer.CloseStream(c.cfg.StreamID); err != nil {
			c.logger.Warn("stream_close_error", "error", err.Error())
		}
	}
	c.record("session_end")
	c.state.Store(int32(StateClosed))
	if c.cfg.OnClose != nil {
		c.cfg.OnClose(c.cfg.StreamID)
	}
}

func (c *Coordinator) record(name string) {
	c.obs.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{
			"stream_id": c.cfg.StreamID,
			"trace_id":  c.cfg.TraceID,
		},
	})
}
