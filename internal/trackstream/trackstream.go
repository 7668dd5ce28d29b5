// Package trackstream implements TrackStream (C3): the lazy infinite PCM
// producer for one TrackInstance, dispatched across four strategies
// (SimpleLoop, CrossfadeLoop, Sparse, PresenceMixer), plus the
// ExclusionCoordinator (C4) that arbitrates between exclusive tracks.
package trackstream

import (
	"fmt"

	"sonorium/internal/audio"
	"sonorium/internal/decode"
	"sonorium/internal/theme"
)

const (
	loopCrossfadeSeconds = 1.5
	trackFadeSeconds     = 6.0

	sparseMinIntervalSeconds = 30.0
	sparseMaxIntervalSeconds = 300.0
)

// TrackStream is the pull-based interface every strategy satisfies. There
// is no hidden suspension: each call produces exactly one chunk and
// returns immediately.
type TrackStream interface {
	NextChunk() audio.Chunk
}

// New builds the TrackStream for instance, applying the selection rule
// from the design: short + partial presence goes sparse; seamless-loop
// tracks crossfade; everything else hard-cut loops. Any result but Sparse
// is wrapped in a PresenceMixer when presence < 1.0. coordinator may be
// nil for themes that never use exclusive tracks; when non-nil and the
// track is exclusive, the gate wraps the fully-assembled stream (Sparse
// or PresenceMixer included) so arbitration sees the same audible/silent
// state a listener would hear, not the raw decoded loop underneath it.
func New(instance *theme.TrackInstance, shortFileThresholdSeconds float64, coordinator *ExclusionCoordinator, randomStart bool) (TrackStream, error) {
	src, err := decode.Load(instance.Recording.Path)
	if err != nil {
		return nil, fmt.Errorf("trackstream %s: %w", instance.Name, err)
	}

	isShort := instance.Recording.IsShort(shortFileThresholdSeconds)
	presence := instance.Presence()

	var stream TrackStream
	switch {
	case isShort && presence < 1.0:
		stream = newSparse(src, instance)
	case instance.CrossfadeEnabled():
		stream = withPresence(newCrossfadeLoop(src, instance, randomStart), instance, presence)
	default:
		stream = withPresence(newSimpleLoop(src, instance, randomStart), instance, presence)
	}

	if instance.Exclusive() && coordinator != nil {
		stream = newExclusiveGate(stream, instance, coordinator)
	}
	return stream, nil
}

// withPresence wraps inner in a PresenceMixer when presence < 1.0, or
// returns it unwrapped when the track is continuously audible.
func withPresence(inner TrackStream, instance *theme.TrackInstance, presence float64) TrackStream {
	if presence < 1.0 {
		return newPresenceMixer(inner, instance)
	}
	return inner
}

// startOffset returns a sample offset within [0, total) for a random-start
// playback, per the design note's decoded-buffer-rotation fallback. It is
// deterministic given total == 0.
func startOffset(total int, randomStart bool) int {
	if !randomStart || total <= 0 {
		return 0
	}
	return randIntn(total)
}
