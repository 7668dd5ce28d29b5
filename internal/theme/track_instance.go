package theme

import "sync"

// PlaybackMode is a track's stored playback-mode setting, persisted in
// metadata.json and presets. trackstream.New does not read it: the
// strategy is chosen from the recording's length, presence, and the
// seamless-loop flag alone.
type PlaybackMode string

const (
	PlaybackAuto       PlaybackMode = "auto"
	PlaybackContinuous PlaybackMode = "continuous"
	PlaybackSparse     PlaybackMode = "sparse"
	PlaybackPresence   PlaybackMode = "presence"
)

// TrackInstance is a Recording as it appears in a theme: the recording
// itself never changes, but the settings here are mutated live by the
// control surface while the audio thread reads them every chunk. Callers
// must use the accessor methods — the zero value is not safe to read
// directly across goroutines.
type TrackInstance struct {
	Name      string
	Recording *Recording

	mu               sync.RWMutex
	volume           float64
	presence         float64
	enabled          bool
	playbackMode     PlaybackMode
	exclusive        bool
	crossfadeEnabled bool
}

// NewTrackInstance builds a TrackInstance with the given settings,
// clamping into their documented ranges.
func NewTrackInstance(name string, rec *Recording, s TrackSettings) *TrackInstance {
	t := &TrackInstance{Name: name, Recording: rec}
	t.Apply(s)
	return t
}

// Apply overwrites every field from s, clamping ranges. Used both at
// construction and when a preset names this track.
func (t *TrackInstance) Apply(s TrackSettings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = clamp01(s.Volume)
	t.presence = clamp01(s.Presence)
	t.enabled = !s.Muted
	mode := PlaybackMode(s.PlaybackMode)
	if mode == "" {
		mode = PlaybackAuto
	}
	t.playbackMode = mode
	t.exclusive = s.Exclusive
	t.crossfadeEnabled = s.SeamlessLoop
}

func (t *TrackInstance) Volume() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.volume
}

func (t *TrackInstance) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = clamp01(v)
}

func (t *TrackInstance) Presence() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.presence
}

func (t *TrackInstance) SetPresence(p float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.presence = clamp01(p)
}

func (t *TrackInstance) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *TrackInstance) SetEnabled(e bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = e
}

func (t *TrackInstance) PlaybackMode() PlaybackMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.playbackMode
}

func (t *TrackInstance) Exclusive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exclusive
}

func (t *TrackInstance) CrossfadeEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.crossfadeEnabled
}

// Settings returns a snapshot of the current settings in the same shape
// metadata.json persists, used when saving a theme or capturing a preset.
func (t *TrackInstance) Settings() TrackSettings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TrackSettings{
		Presence:     t.presence,
		Muted:        !t.enabled,
		Volume:       t.volume,
		PlaybackMode: string(t.playbackMode),
		SeamlessLoop: t.crossfadeEnabled,
		Exclusive:    t.exclusive,
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
