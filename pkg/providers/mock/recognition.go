package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/harunnryd/lyra/pkg/adapters/recognition"
)

// Recognizer is a scriptable recognition stream for tests. Readiness and
// events are driven explicitly by the test via SignalReady and the Emit
// helpers.
type Recognizer struct {
	ready     chan struct{}
	readyOnce sync.Once
	events    chan recognition.Event
	evOnce    sync.Once

	mu       sync.Mutex
	audio    [][]byte
	finished bool

	startErr   error
	closeCount atomic.Int32
}

func NewRecognizer() *Recognizer {
	return &Recognizer{
		ready:  make(chan struct{}),
		events: make(chan recognition.Event, 64),
	}
}

// FailStart makes the next Start call return err.
func (m *Recognizer) FailStart(err error) { m.startErr = err }

func (m *Recognizer) Name() string { return "mock_recognizer" }

func (m *Recognizer) Start(ctx context.Context) error { return m.startErr }

func (m *Recognizer) Ready() <-chan struct{} { return m.ready }

func (m *Recognizer) SendAudio(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.audio = append(m.audio, buf)
	return nil
}

func (m *Recognizer) Finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
	return nil
}

func (m *Recognizer) Close() error {
	m.closeCount.Add(1)
	m.evOnce.Do(func() { close(m.events) })
	return nil
}

func (m *Recognizer) Events() <-chan recognition.Event { return m.events }

// SignalReady closes the readiness channel. Safe to call more than once.
func (m *Recognizer) SignalReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Recognizer) EmitInterim(text string) {
	m.events <- recognition.Event{Kind: recognition.EventInterim, Text: text}
}

func (m *Recognizer) EmitFinal(text string) {
	m.events <- recognition.Event{Kind: recognition.EventFinal, Text: text}
}

func (m *Recognizer) EmitError(err error) {
	m.events <- recognition.Event{Kind: recognition.EventError, Err: err}
}

func (m *Recognizer) EmitClosed() {
	m.events <- recognition.Event{Kind: recognition.EventClosed}
}

// Audio returns every payload passed to SendAudio, in order.
func (m *Recognizer) Audio() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.audio))
	copy(out, m.audio)
	return out
}

// CloseCount reports how many times Close was invoked.
func (m *Recognizer) CloseCount() int {
	return int(m.closeCount.Load())
}

var _ recognition.Stream = (*Recognizer)(nil)
