package synthesis

import "context"

// Synthesizer defines the contract for any one-shot speech synthesis
// vendor: text in, one encoded audio clip out. Implementations are
// expected to be safe for concurrent calls; the delivery queue runs one
// synthesis per reply slot.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Synthesize converts text into audio in the configured encoding.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config contains vendor-agnostic synthesis configuration.
type Config struct {
	OutputFormat string
	SampleRate   int
}
