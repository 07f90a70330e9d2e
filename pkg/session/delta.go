package session

import "strings"

// DeltaTracker reduces a stream of interim/final transcripts to
// incremental text fragments. Successive interim results from a streaming
// recognizer usually grow the previous hypothesis by a suffix; when they
// do, only the new suffix is emitted. When the recognizer revises its
// hypothesis instead, the full new transcript is emitted.
type DeltaTracker struct {
	lastInterim string
}

// Interim records an interim transcript and returns its delta.
func (t *DeltaTracker) Interim(text string) string {
	delta := t.delta(text)
	t.lastInterim = text
	return delta
}

// Final records a final transcript, returns its delta, and resets the
// tracker for the next utterance.
func (t *DeltaTracker) Final(text string) string {
	delta := t.delta(text)
	t.lastInterim = ""
	return delta
}

func (t *DeltaTracker) delta(text string) string {
	if strings.HasPrefix(text, t.lastInterim) {
		return text[len(t.lastInterim):]
	}
	return text
}
