package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/harunnryd/lyra/pkg/adapters/synthesis"
	"github.com/harunnryd/lyra/pkg/logging"
	"github.com/harunnryd/lyra/pkg/resilience"
)

type Config struct {
	APIKey       string
	VoiceID      string
	ModelID      string
	OutputFormat string
	SampleRate   int
}

// Synthesizer renders one reply per call through the ElevenLabs REST
// endpoint. The coordinator synthesizes whole replies, so the streaming
// websocket is unnecessary; one request returns one complete clip in the
// configured output format (ulaw_8000 for telephony).
type Synthesizer struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config) *Synthesizer {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "ulaw_8000"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 8000
	}
	return &Synthesizer{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logging.NewComponentLogger(slog.Default(), "elevenlabs_tts"),
	}
}

func (s *Synthesizer) Name() string { return "elevenlabs_tts" }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.cfg.APIKey == "" || s.cfg.VoiceID == "" {
		return nil, errors.New("missing elevenlabs config")
	}
	payload := map[string]any{
		"text": text,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
	}
	if s.cfg.ModelID != "" {
		payload["model_id"] = s.cfg.ModelID
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.buildURL(), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		body, _ := io.ReadAll(resp.Body)
		return nil, resilience.RateLimitError{Provider: "elevenlabs", Message: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.New(string(body))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("synthesis_complete",
		slog.Int("size_bytes", len(audio)),
		slog.String("output_format", s.cfg.OutputFormat))
	return audio, nil
}

func (s *Synthesizer) buildURL() string {
	base := "https://api.elevenlabs.io/v1/text-to-speech/" + s.cfg.VoiceID
	q := url.Values{}
	q.Set("output_format", s.cfg.OutputFormat)
	return base + "?" + q.Encode()
}

var _ synthesis.Synthesizer = (*Synthesizer)(nil)
