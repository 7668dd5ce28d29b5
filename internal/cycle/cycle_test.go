package cycle

import (
	"testing"
	"time"
)

func TestNextThemeAdvancesInOrder(t *testing.T) {
	c := CycleCandidate{CurrentThemeID: "x", ThemeIDs: []string{"x", "y", "z"}}
	if got := nextTheme(c); got != "y" {
		t.Fatalf("expected y, got %s", got)
	}
}

func TestNextThemeWrapsAround(t *testing.T) {
	c := CycleCandidate{CurrentThemeID: "z", ThemeIDs: []string{"x", "y", "z"}}
	if got := nextTheme(c); got != "x" {
		t.Fatalf("expected wrap to x, got %s", got)
	}
}

func TestNextThemeRandomizeNeverRepeatsCurrent(t *testing.T) {
	c := CycleCandidate{CurrentThemeID: "x", ThemeIDs: []string{"x", "y", "z"}, Randomize: true}
	for i := 0; i < 50; i++ {
		if got := nextTheme(c); got == "x" {
			t.Fatalf("randomized pick repeated current theme")
		}
	}
}

func TestNextThemeSingleEntrySameAsCurrentReturnsEmpty(t *testing.T) {
	c := CycleCandidate{CurrentThemeID: "x", ThemeIDs: []string{"x"}}
	if got := nextTheme(c); got != "" {
		t.Fatalf("expected no advance with a single identical theme, got %s", got)
	}
}

type fakeSessions struct {
	candidates []CycleCandidate
	updated    []string
}

func (f *fakeSessions) PlayingWithCycle() []CycleCandidate { return f.candidates }

func (f *fakeSessions) UpdateTheme(sessionID, themeID string) error {
	f.updated = append(f.updated, sessionID+"->"+themeID)
	return nil
}

func TestTickSkipsBeforeIntervalElapsed(t *testing.T) {
	fs := &fakeSessions{candidates: []CycleCandidate{
		{SessionID: "s1", CurrentThemeID: "x", IntervalMinutes: 60, ThemeIDs: []string{"x", "y"}, LastChange: time.Now()},
	}}
	m := New(fs)
	m.tick()
	if len(fs.updated) != 0 {
		t.Fatalf("expected no update before interval elapsed, got %v", fs.updated)
	}
}
