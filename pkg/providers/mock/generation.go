package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/lyra/pkg/generation"
)

// Generator is a scriptable reply generator for tests.
type Generator struct {
	// Reply is returned when GenerateFunc is nil.
	Reply string
	// Err is returned when GenerateFunc is nil and Err is non-nil.
	Err error
	// GenerateFunc, when set, fully controls the response.
	GenerateFunc func(ctx context.Context, turns []generation.Turn) (string, error)

	mu    sync.Mutex
	calls [][]generation.Turn
}

func (m *Generator) Name() string { return "mock_generator" }

func (m *Generator) Generate(ctx context.Context, turns []generation.Turn) (string, error) {
	m.mu.Lock()
	snapshot := make([]generation.Turn, len(turns))
	copy(snapshot, turns)
	m.calls = append(m.calls, snapshot)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, turns)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Calls returns the turn slices passed to each Generate invocation.
func (m *Generator) Calls() [][]generation.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]generation.Turn, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ generation.Generator = (*Generator)(nil)
