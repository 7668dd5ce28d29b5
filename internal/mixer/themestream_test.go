package mixer

import (
	"testing"

	th "sonorium/internal/theme"
)

func TestNextChunkZeroTracksIsSilent(t *testing.T) {
	theme := &th.Theme{ID: "empty"}
	ms := New(theme, false)

	c := ms.NextChunk()
	if !c.IsSilent() {
		t.Fatal("expected silence when the theme has zero tracks")
	}
}

func TestSetOutputGain(t *testing.T) {
	theme := &th.Theme{ID: "t"}
	ms := New(theme, false)
	ms.SetOutputGain(2.0)
	if ms.outputGain != 2.0 {
		t.Fatalf("expected gain 2.0, got %f", ms.outputGain)
	}
}

func TestMarkRandomStartForNewStreamsOverridesConstructorFlag(t *testing.T) {
	theme := &th.Theme{ID: "t"}
	ms := New(theme, false)
	if ms.randomStart {
		t.Fatal("expected randomStart false from New(theme, false)")
	}
	ms.MarkRandomStartForNewStreams()
	if !ms.randomStart {
		t.Fatal("expected randomStart true after MarkRandomStartForNewStreams")
	}
}
