// Package mixer implements ThemeStream (C5): the component that pulls one
// chunk from every enabled track in a theme and sums them into a single
// master PCM chunk. MP3 encoding happens downstream, once per connected
// client (internal/mp3enc), not here — the mixer only ever produces raw
// PCM so that a Channel can crossfade two ThemeStreams in PCM space.
package mixer

import (
	"log"
	"sync"

	"sonorium/internal/audio"
	"sonorium/internal/theme"
	"sonorium/internal/trackstream"
)

const (
	defaultOutputGain = 6.0
	trackFadeSeconds  = 6.0
)

// fadeGainStep is how much a track's enable/disable fade gain moves per
// chunk, so a full 0→1 or 1→0 transition takes trackFadeSeconds.
var fadeGainStep = (float64(audio.ChunkSize) / audio.SampleRate) / trackFadeSeconds

// ThemeStream mixes every enabled TrackInstance of one Theme into a
// master mono chunk. Output gain is read fresh every cycle so a live
// master-volume edit takes effect on the next chunk. Enabling or
// disabling a track (directly, or via a preset swap) fades its
// contribution in or out over trackFadeSeconds rather than cutting it,
// so in-place preset changes never drop the master mix to silence.
type ThemeStream struct {
	theme       *theme.Theme
	coordinator *trackstream.ExclusionCoordinator

	mu          sync.Mutex
	streams     map[string]trackstream.TrackStream
	fadeGains   map[string]float64
	outputGain  float64
	randomStart bool
	everStarted bool
}

// New builds a ThemeStream bound to th. randomStart controls whether
// newly constructed per-track streams begin at a random offset (used when
// a stream is (re)created mid-session, e.g. after a preset swap enables a
// previously-muted track).
func New(th *theme.Theme, randomStart bool) *ThemeStream {
	return &ThemeStream{
		theme:       th,
		coordinator: trackstream.NewExclusionCoordinator(),
		streams:     make(map[string]trackstream.TrackStream),
		fadeGains:   make(map[string]float64),
		outputGain:  defaultOutputGain,
		randomStart: randomStart,
	}
}

// SetOutputGain overrides the default 6.0 master gain.
func (m *ThemeStream) SetOutputGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputGain = gain
}

// MarkRandomStartForNewStreams makes every TrackStream this ThemeStream
// constructs from now on begin at a random sample offset, regardless of
// how New was configured. A live preset swap calls this before applying
// the preset's settings, so a track the preset newly enables gets the
// same random-start treatment a full theme swap already gives every
// track via New's randomStart argument, instead of starting from frame
// zero just because the ThemeStream itself is no longer new.
func (m *ThemeStream) MarkRandomStartForNewStreams() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.randomStart = true
}

// Theme returns the bound theme.
func (m *ThemeStream) Theme() *theme.Theme { return m.theme }

// NextChunk pulls one chunk from every enabled track, sums in an int32
// accumulator, applies the output gain, and clamps to int16. Zero enabled
// tracks yields continuous silence, not an error.
func (m *ThemeStream) NextChunk() audio.Chunk {
	m.mu.Lock()
	gain := m.outputGain
	tracks := m.theme.Tracks()

	sums := make([]int32, audio.ChunkSize)
	for _, t := range tracks {
		target := 0.0
		if t.Enabled() {
			target = 1.0
		}

		stream, exists := m.streams[t.Name]
		if !exists && target == 0 {
			// Never started and still disabled: nothing to fade out.
			delete(m.fadeGains, t.Name)
			continue
		}
		freshlyCreated := !exists
		if !exists {
			s, err := trackstream.New(t, m.theme.ShortFileThreshold, m.coordinator, m.randomStart)
			if err != nil {
				log.Printf("[mixer] theme %s: track %s unavailable, treating as silent: %v", m.theme.ID, t.Name, err)
				continue
			}
			stream = s
			m.streams[t.Name] = stream
		}

		if freshlyCreated && !m.everStarted {
			// A track enabled from the very first chunk this ThemeStream
			// ever produces starts at full gain: the 6s fade only applies
			// to live enable/disable toggles on an already-playing theme.
			m.fadeGains[t.Name] = target
		}

		gain := m.fadeGains[t.Name]
		switch {
		case gain < target:
			gain += fadeGainStep
			if gain > target {
				gain = target
			}
		case gain > target:
			gain -= fadeGainStep
			if gain < target {
				gain = target
			}
		}
		m.fadeGains[t.Name] = gain

		chunk := stream.NextChunk()
		if gain <= 0 {
			if target == 0 {
				delete(m.streams, t.Name)
				delete(m.fadeGains, t.Name)
			}
			continue
		}
		for i, s := range chunk {
			sums[i] += int32(float64(s) * gain)
		}
	}
	m.everStarted = true
	m.mu.Unlock()

	out := make(audio.Chunk, audio.ChunkSize)
	for i, s := range sums {
		v := int32(float64(s) * gain)
		switch {
		case v > 32767:
			out[i] = 32767
		case v < -32768:
			out[i] = -32768
		default:
			out[i] = int16(v)
		}
	}
	return out
}
