package theme

import "testing"

func TestTrackInstanceApplyClamps(t *testing.T) {
	rec := NewRecording("/nonexistent/track.mp3")
	ti := NewTrackInstance("wind", rec, TrackSettings{
		Presence: 2.0, Volume: -1.0, Muted: false, PlaybackMode: "auto",
	})
	if ti.Presence() != 1.0 {
		t.Fatalf("expected presence clamped to 1.0, got %f", ti.Presence())
	}
	if ti.Volume() != 0.0 {
		t.Fatalf("expected volume clamped to 0.0, got %f", ti.Volume())
	}
}

func TestTrackInstanceSettingsRoundTrip(t *testing.T) {
	rec := NewRecording("/nonexistent/track.mp3")
	want := TrackSettings{
		Presence: 0.4, Muted: true, Volume: 0.8,
		PlaybackMode: "sparse", SeamlessLoop: false, Exclusive: true,
	}
	ti := NewTrackInstance("birds", rec, want)
	got := ti.Settings()
	if got != want {
		t.Fatalf("settings round trip mismatch: got %+v want %+v", got, want)
	}
}

func newTestTheme() *Theme {
	th := &Theme{
		ID:                 "theme-1",
		Name:               "Forest",
		ShortFileThreshold: defaultShortFileThresholdSeconds,
		tracks:             make(map[string]*TrackInstance),
		presets:            make(map[string]*Preset),
	}
	rec := NewRecording("/nonexistent/wind.mp3")
	th.tracks["wind"] = NewTrackInstance("wind", rec, DefaultTrackSettings())
	birdSettings := DefaultTrackSettings()
	birdSettings.Presence = 0.3
	th.tracks["birds"] = NewTrackInstance("birds", rec, birdSettings)
	return th
}

func TestApplyPresetOnlyTouchesNamedTracks(t *testing.T) {
	th := newTestTheme()
	th.presets["night"] = &Preset{
		ID:   "night",
		Name: "Night",
		Tracks: map[string]TrackSettings{
			"birds": {Presence: 0, Muted: true, Volume: 1.0, PlaybackMode: "auto", SeamlessLoop: true},
		},
	}

	windBefore := th.Track("wind").Settings()
	if err := th.ApplyPreset("night"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}

	if !th.Track("birds").Settings().Muted {
		t.Fatal("expected birds to be muted after preset")
	}
	if th.Track("wind").Settings() != windBefore {
		t.Fatal("expected wind to be untouched by a preset that doesn't name it")
	}
}

func TestApplyPresetIdempotent(t *testing.T) {
	th := newTestTheme()
	th.presets["night"] = &Preset{
		ID:   "night",
		Name: "Night",
		Tracks: map[string]TrackSettings{
			"birds": {Presence: 0.2, Muted: true, Volume: 0.5, PlaybackMode: "sparse", SeamlessLoop: false},
		},
	}

	if err := th.ApplyPreset("night"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	first := th.Track("birds").Settings()

	if err := th.ApplyPreset("night"); err != nil {
		t.Fatalf("ApplyPreset (second): %v", err)
	}
	second := th.Track("birds").Settings()

	if first != second {
		t.Fatalf("ApplyPreset not idempotent: %+v vs %+v", first, second)
	}
}

func TestApplyPresetUnknown(t *testing.T) {
	th := newTestTheme()
	if err := th.ApplyPreset("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestSetTrackFieldVolume(t *testing.T) {
	th := newTestTheme()
	if err := th.SetTrackField("wind", "volume", 0.25); err != nil {
		t.Fatalf("SetTrackField: %v", err)
	}
	if got := th.Track("wind").Volume(); got != 0.25 {
		t.Fatalf("expected volume 0.25, got %f", got)
	}
}

func TestSetTrackFieldUnknownTrack(t *testing.T) {
	th := newTestTheme()
	if err := th.SetTrackField("nope", "volume", 0.5); err == nil {
		t.Fatal("expected error for unknown track")
	}
}
