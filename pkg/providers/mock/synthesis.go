package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/lyra/pkg/adapters/synthesis"
)

// Synthesizer is a scriptable synthesizer for tests. By default it echoes
// the input text as audio bytes; SynthesizeFunc overrides that.
type Synthesizer struct {
	SynthesizeFunc func(ctx context.Context, text string) ([]byte, error)

	mu    sync.Mutex
	texts []string
}

func (m *Synthesizer) Name() string { return "mock_synthesizer" }

func (m *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	return []byte(text), nil
}

// Texts returns every text passed to Synthesize, in order.
func (m *Synthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

var _ synthesis.Synthesizer = (*Synthesizer)(nil)
