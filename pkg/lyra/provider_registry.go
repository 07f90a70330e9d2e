package lyra

import (
	"fmt"
	"strings"

	"github.com/harunnryd/lyra/pkg/adapters/recognition"
	"github.com/harunnryd/lyra/pkg/adapters/synthesis"
	"github.com/harunnryd/lyra/pkg/configutil"
	"github.com/harunnryd/lyra/pkg/generation"
	"github.com/harunnryd/lyra/pkg/providers/deepgram"
	"github.com/harunnryd/lyra/pkg/providers/elevenlabs"
	"github.com/harunnryd/lyra/pkg/providers/mock"
	"github.com/harunnryd/lyra/pkg/providers/openai"
)

// RecognizerFactory builds one recognition stream per call.
type RecognizerFactory func(cfg Config, streamID, callSID, traceID string) (recognition.Stream, error)

// GeneratorFactory builds the reply generator shared by all calls.
type GeneratorFactory func(cfg Config) (generation.Generator, error)

// SynthesizerFactory builds the synthesizer shared by all calls.
type SynthesizerFactory func(cfg Config) (synthesis.Synthesizer, error)

// ProviderRegistry maps vendor names from config to constructors.
type ProviderRegistry struct {
	recognition map[string]RecognizerFactory
	generation  map[string]GeneratorFactory
	synthesis   map[string]SynthesizerFactory
}

func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		recognition: make(map[string]RecognizerFactory),
		generation:  make(map[string]GeneratorFactory),
		synthesis:   make(map[string]SynthesizerFactory),
	}
	r.RegisterRecognizer("deepgram", buildDeepgram)
	r.RegisterGenerator("openai", buildOpenAI)
	r.RegisterSynthesizer("elevenlabs", buildElevenLabs)
	r.RegisterRecognizer("mock", func(Config, string, string, string) (recognition.Stream, error) {
		return mock.NewRecognizer(), nil
	})
	r.RegisterGenerator("mock", func(Config) (generation.Generator, error) {
		return &mock.Generator{Reply: "ok"}, nil
	})
	r.RegisterSynthesizer("mock", func(Config) (synthesis.Synthesizer, error) {
		return &mock.Synthesizer{}, nil
	})
	return r
}

func (r *ProviderRegistry) RegisterRecognizer(name string, factory RecognizerFactory) {
	r.recognition[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterGenerator(name string, factory GeneratorFactory) {
	r.generation[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterSynthesizer(name string, factory SynthesizerFactory) {
	r.synthesis[normalizeName(name)] = factory
}

func (r *ProviderRegistry) BuildRecognizer(cfg Config, streamID, callSID, traceID string) (recognition.Stream, error) {
	provider := cfg.Vendors.Recognition.Provider
	fn := r.recognition[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("recognition provider not registered: %s", provider)
	}
	return fn(cfg, streamID, callSID, traceID)
}

func (r *ProviderRegistry) BuildGenerator(cfg Config) (generation.Generator, error) {
	provider := cfg.Vendors.Generation.Provider
	fn := r.generation[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("generation provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildSynthesizer(cfg Config) (synthesis.Synthesizer, error) {
	provider := cfg.Vendors.Synthesis.Provider
	fn := r.synthesis[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("synthesis provider not registered: %s", provider)
	}
	return fn(cfg)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type deepgramSettings struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	Encoding       string `mapstructure:"encoding"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Interim        bool   `mapstructure:"interim"`
	UtteranceEndMS int    `mapstructure:"utterance_end_ms"`
}

var deepgramSchema = configutil.Schema{
	Required: []string{"api_key"},
	Optional: []string{"model", "language", "encoding", "sample_rate", "interim", "utterance_end_ms"},
}

func buildDeepgram(cfg Config, streamID, callSID, traceID string) (recognition.Stream, error) {
	if err := configutil.ValidateSettings(cfg.Vendors.Recognition.Settings, deepgramSchema); err != nil {
		return nil, fmt.Errorf("vendors.recognition.settings: %w", err)
	}
	var settings deepgramSettings
	if err := configutil.DecodeSettings(cfg.Vendors.Recognition.Settings, &settings); err != nil {
		return nil, err
	}
	return deepgram.New(deepgram.Config{
		APIKey:         settings.APIKey,
		Model:          settings.Model,
		Language:       settings.Language,
		Encoding:       settings.Encoding,
		SampleRate:     settings.SampleRate,
		Interim:        settings.Interim,
		UtteranceEndMS: settings.UtteranceEndMS,
		StreamID:       streamID,
		CallSID:        callSID,
		TraceID:        traceID,
	}), nil
}

type openaiSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

var openaiSchema = configutil.Schema{
	Required: []string{"api_key"},
	Optional: []string{"model", "base_url"},
}

func buildOpenAI(cfg Config) (generation.Generator, error) {
	if err := configutil.ValidateSettings(cfg.Vendors.Generation.Settings, openaiSchema); err != nil {
		return nil, fmt.Errorf("vendors.generation.settings: %w", err)
	}
	var settings openaiSettings
	if err := configutil.DecodeSettings(cfg.Vendors.Generation.Settings, &settings); err != nil {
		return nil, err
	}
	adapter := openai.NewAdapter(settings.APIKey, settings.Model)
	if settings.BaseURL != "" {
		adapter.BaseURL = settings.BaseURL
	}
	return adapter, nil
}

type elevenLabsSettings struct {
	APIKey       string `mapstructure:"api_key"`
	VoiceID      string `mapstructure:"voice_id"`
	ModelID      string `mapstructure:"model_id"`
	OutputFormat string `mapstructure:"output_format"`
	SampleRate   int    `mapstructure:"sample_rate"`
}

var elevenLabsSchema = configutil.Schema{
	Required: []string{"api_key", "voice_id"},
	Optional: []string{"model_id", "output_format", "sample_rate"},
}

func buildElevenLabs(cfg Config) (synthesis.Synthesizer, error) {
	if err := configutil.ValidateSettings(cfg.Vendors.Synthesis.Settings, elevenLabsSchema); err != nil {
		return nil, fmt.Errorf("vendors.synthesis.settings: %w", err)
	}
	var settings elevenLabsSettings
	if err := configutil.DecodeSettings(cfg.Vendors.Synthesis.Settings, &settings); err != nil {
		return nil, err
	}
	return elevenlabs.New(elevenlabs.Config{
		APIKey:       settings.APIKey,
		VoiceID:      settings.VoiceID,
		ModelID:      settings.ModelID,
		OutputFormat: settings.OutputFormat,
		SampleRate:   settings.SampleRate,
	}), nil
}
