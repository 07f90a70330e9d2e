package lyra

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/harunnryd/lyra/pkg/configutil"
	"github.com/harunnryd/lyra/pkg/logging"
	"github.com/harunnryd/lyra/pkg/metrics"
	"github.com/harunnryd/lyra/pkg/observers"
	"github.com/harunnryd/lyra/pkg/redact"
	"github.com/harunnryd/lyra/pkg/session"
	"github.com/harunnryd/lyra/pkg/transports"
	transportmock "github.com/harunnryd/lyra/pkg/transports/mock"
	"github.com/harunnryd/lyra/pkg/transports/twilio"
)

// Engine wires config, transport, providers and the session registry into
// a runnable service. One engine serves many concurrent calls.
type Engine struct {
	cfg       Config
	transport transports.Transport
	providers *ProviderRegistry
	registry  *session.Registry
	asyncObs  *metrics.AsyncObserver
	logger    *slog.Logger
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// Transport overrides the config-driven transport when set.
	Transport transports.Transport
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("lyra_init",
		"environment", cfg.Environment,
		"recognition_provider", cfg.Vendors.Recognition.Provider,
		"generation_provider", cfg.Vendors.Generation.Provider,
		"synthesis_provider", cfg.Vendors.Synthesis.Provider,
		"transport", cfg.Transports.Provider,
	)

	latencyObs := observers.NewLatencyObserver(logger)
	logObs := observers.NewLoggerObserver(logger)
	multiObs := observers.NewMultiObserver(latencyObs, logObs)
	asyncObs := metrics.NewAsyncObserver(multiObs, 2048)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	transport := opts.Transport
	if transport == nil {
		built, err := buildTransport(cfg)
		if err != nil {
			return nil, err
		}
		transport = built
	}

	generator, err := providers.BuildGenerator(cfg)
	if err != nil {
		return nil, err
	}
	synthesizer, err := providers.BuildSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		transport: transport,
		providers: providers,
		asyncObs:  asyncObs,
		logger:    logger,
	}

	factory := func(ctx context.Context, streamID, callSID, traceID string, onClose func(string)) (*session.Coordinator, error) {
		recognizer, err := providers.BuildRecognizer(cfg, streamID, callSID, traceID)
		if err != nil {
			return nil, err
		}
		return session.NewCoordinator(session.Config{
			StreamID:        streamID,
			CallSID:         callSID,
			TraceID:         traceID,
			Recognizer:      recognizer,
			Generator:       generator,
			Synthesizer:     synthesizer,
			Transport:       transport,
			SystemPrompt:    cfg.SystemPrompt,
			FallbackReply:   cfg.FallbackReply,
			MaxHistory:      cfg.Session.MaxHistory,
			PendingAudioMax: cfg.Session.PendingAudioMaxFrames,
			ReplyQueueDepth: cfg.Session.ReplyQueueDepth,
			MinSendGap:      time.Duration(cfg.Session.MinSendGapMS) * time.Millisecond,
			SampleRate:      cfg.Session.SampleRate,
			Observer:        asyncObs,
			Logger:          logger,
			OnClose:         onClose,
		}), nil
	}
	e.registry = session.NewRegistry(transport, factory, logger)
	return e, nil
}

// Run starts the transport and consumes its frames until ctx is canceled
// or the transport closes.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.transport.Start(ctx); err != nil {
		return err
	}
	fields := []any{"message", "Lyra Engine Ready"}
	if rr, ok := e.transport.(transports.ReadyReporter); ok {
		for k, v := range rr.ReadyFields() {
			fields = append(fields, k, v)
		}
	}
	slog.Info("engine_ready", fields...)
	e.registry.Run(ctx)
	return nil
}

// Drain tears down live sessions and stops the transport. Implements
// runner.Drainer for graceful shutdown.
func (e *Engine) Drain() error {
	e.registry.CloseAll("shutdown")
	if err := e.transport.Stop(); err != nil {
		e.logger.Warn("transport_stop_error", "error", err.Error())
	}
	e.asyncObs.Close()
	slog.Info("shutdown",
		"goroutines", runtime.NumGoroutine(),
		"active_calls", e.registry.Len())
	return nil
}

func (e *Engine) Transport() transports.Transport { return e.transport }

func (e *Engine) Registry() *session.Registry { return e.registry }

func (e *Engine) Config() Config { return e.cfg }

func buildTransport(cfg Config) (transports.Transport, error) {
	switch normalizeName(cfg.Transports.Provider) {
	case "twilio":
		var settings twilio.Config
		if err := configutil.DecodeSettings(cfg.Transports.Settings, &settings); err != nil {
			return nil, err
		}
		return twilio.New(settings), nil
	case "mock":
		return transportmock.New(), nil
	default:
		return nil, fmt.Errorf("transport provider not registered: %s", cfg.Transports.Provider)
	}
}
