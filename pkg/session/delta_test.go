package session

import (
	"strings"
	"testing"
)

func TestDeltaTrackerGrowingHypothesis(t *testing.T) {
	var tr DeltaTracker

	var got []string
	got = append(got, tr.Interim("hel"))
	got = append(got, tr.Interim("hello"))
	got = append(got, tr.Interim("hello how"))
	got = append(got, tr.Final("hello how are you"))

	want := []string{"hel", "lo", " how", " are you"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delta %d: got %q want %q", i, got[i], want[i])
		}
	}
	if joined := strings.Join(got, ""); joined != "hello how are you" {
		t.Fatalf("concatenated deltas = %q", joined)
	}
}

func TestDeltaTrackerRevisionEmitsFullText(t *testing.T) {
	var tr DeltaTracker

	tr.Interim("I want to")
	if got := tr.Interim("I'd like to"); got != "I'd like to" {
		t.Fatalf("revised interim delta = %q, want full text", got)
	}
}

func TestDeltaTrackerFinalResetsState(t *testing.T) {
	var tr DeltaTracker

	tr.Interim("first utterance")
	tr.Final("first utterance done")
	if got := tr.Interim("second"); got != "second" {
		t.Fatalf("delta after final = %q, want %q", got, "second")
	}
}

func TestDeltaTrackerIdenticalInterimYieldsEmptyDelta(t *testing.T) {
	var tr DeltaTracker

	tr.Interim("same text")
	if got := tr.Interim("same text"); got != "" {
		t.Fatalf("repeated interim delta = %q, want empty", got)
	}
}
