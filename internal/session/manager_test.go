package session

import (
	"testing"

	"sonorium/internal/channel"
	"sonorium/internal/theme"
)

type fakeTopology struct {
	floors map[string][]string
	areas  map[string][]string
	names  map[string]string
}

func newFakeTopology() *fakeTopology {
	return &fakeTopology{
		floors: map[string][]string{"upstairs": {"bedroom-speaker"}},
		areas:  map[string][]string{"kitchen": {"kitchen-speaker"}, "living": {"living-speaker"}},
		names: map[string]string{
			"upstairs":        "Upstairs",
			"kitchen":         "Kitchen",
			"living":          "Living Room",
			"kitchen-speaker": "Kitchen Speaker",
		},
	}
}

func (f *fakeTopology) SpeakersInFloor(id string) []string { return f.floors[id] }
func (f *fakeTopology) SpeakersInArea(id string) []string  { return f.areas[id] }
func (f *fakeTopology) FloorName(id string) string         { return f.names[id] }
func (f *fakeTopology) AreaName(id string) string          { return f.names[id] }
func (f *fakeTopology) SpeakerName(id string) string        { return f.names[id] }

type fakeThemes struct {
	byID map[string]*theme.Theme
}

func (f *fakeThemes) Theme(id string) *theme.Theme { return f.byID[id] }

func (f *fakeThemes) AllIDs() []string {
	ids := make([]string, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	return ids
}

func newEmptyTheme(t *testing.T, id string) *theme.Theme {
	t.Helper()
	dir := t.TempDir()
	th, err := theme.Scan(dir)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	th.ID = id
	return th
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cm := channel.NewManager(2)
	t.Cleanup(cm.Shutdown)

	forest := newEmptyTheme(t, "forest")
	tavern := newEmptyTheme(t, "tavern")

	return NewManager(Options{
		Channels:      cm,
		Themes:        &fakeThemes{byID: map[string]*theme.Theme{"forest": forest, "tavern": tavern}},
		Topology:      newFakeTopology(),
		MaxSessions:   2,
		StreamBaseURL: "http://localhost:9000",
	})
}

func TestCreateRejectsOverLimit(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(CreateOptions{ThemeID: "forest"}); err != nil {
		t.Fatalf("create 1: %v", err)
	}
	if _, err := m.Create(CreateOptions{ThemeID: "forest"}); err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if _, err := m.Create(CreateOptions{ThemeID: "forest"}); err == nil {
		t.Fatal("expected LIMIT_EXCEEDED on third session")
	}
}

func TestCreateAutoNamesSingleArea(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(CreateOptions{
		ThemeID:   "forest",
		Selection: SpeakerSelection{IncludeAreas: []string{"kitchen"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.Name != "Kitchen" {
		t.Fatalf("expected auto-name %q, got %q", "Kitchen", s.Name)
	}
	if s.Source != SourceAutoArea {
		t.Fatalf("expected SourceAutoArea, got %s", s.Source)
	}
}

func TestPlayRequiresTheme(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(CreateOptions{Selection: SpeakerSelection{IncludeAreas: []string{"kitchen"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Play(s.ID); err == nil {
		t.Fatal("expected error playing a session with no theme")
	}
}

func TestPlayBindsChannelAndStop(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(CreateOptions{ThemeID: "forest", Selection: SpeakerSelection{IncludeAreas: []string{"kitchen"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Play(s.ID); err != nil {
		t.Fatalf("play: %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsPlaying {
		t.Fatal("expected is_playing after Play")
	}
	if got.ChannelID == 0 {
		t.Fatal("expected a bound channel after Play")
	}

	if err := m.Stop(s.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	got, _ = m.Get(s.ID)
	if got.IsPlaying {
		t.Fatal("expected is_playing false after Stop")
	}
	if got.ChannelID != 0 {
		t.Fatal("expected channel released after Stop")
	}
}

func TestUpdateVolumeClampsAndPersistsWhenNotPlaying(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(CreateOptions{ThemeID: "forest"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.UpdateVolume(s.ID, 500); err != nil {
		t.Fatalf("update volume: %v", err)
	}
	got, _ := m.Get(s.ID)
	if got.Volume != 100 {
		t.Fatalf("expected volume clamped to 100, got %d", got.Volume)
	}
}

func TestUpdateSpeakersReplacesSelection(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Create(CreateOptions{ThemeID: "forest", Selection: SpeakerSelection{IncludeAreas: []string{"kitchen"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Play(s.ID); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := m.UpdateSpeakers(s.ID, "", SpeakerSelection{IncludeAreas: []string{"living"}}); err != nil {
		t.Fatalf("update speakers: %v", err)
	}
	got, _ := m.Get(s.ID)
	resolved := got.Selection.Resolve(newFakeTopology())
	if len(resolved) != 1 || resolved[0] != "living-speaker" {
		t.Fatalf("expected resolved speakers [living-speaker], got %v", resolved)
	}
}

func TestStopAllStopsOnlyPlayingSessions(t *testing.T) {
	m := newTestManager(t)
	s1, _ := m.Create(CreateOptions{ThemeID: "forest"})
	s2, _ := m.Create(CreateOptions{ThemeID: "tavern"})
	if err := m.Play(s1.ID); err != nil {
		t.Fatalf("play s1: %v", err)
	}
	m.StopAll()

	got1, _ := m.Get(s1.ID)
	got2, _ := m.Get(s2.ID)
	if got1.IsPlaying {
		t.Fatal("expected s1 stopped")
	}
	if got2.IsPlaying {
		t.Fatal("expected s2 to have stayed stopped")
	}
}
