package session

import (
	"sync"

	"github.com/harunnryd/lyra/pkg/generation"
)

const defaultMaxHistory = 12

// History is the bounded conversation history for one session. The first
// turn is always the system turn; when the bound is exceeded the oldest
// non-system turns are dropped first. Only the coordinator's generation
// path mutates it.
type History struct {
	mu    sync.Mutex
	turns []generation.Turn
	max   int
}

func NewHistory(systemPrompt string, max int) *History {
	if max <= 1 {
		max = defaultMaxHistory
	}
	return &History{
		turns: []generation.Turn{{Role: generation.RoleSystem, Text: systemPrompt}},
		max:   max,
	}
}

func (h *History) AppendUser(text string) {
	h.append(generation.Turn{Role: generation.RoleUser, Text: text})
}

func (h *History) AppendAssistant(text string) {
	h.append(generation.Turn{Role: generation.RoleAssistant, Text: text})
}

func (h *History) append(turn generation.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	for len(h.turns) > h.max {
		// Index 0 is the pinned system turn.
		h.turns = append(h.turns[:1], h.turns[2:]...)
	}
}

// Turns returns a copy of the current history.
func (h *History) Turns() []generation.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]generation.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
