package trackstream

import (
	"sonorium/internal/audio"
	"sonorium/internal/theme"
)

const (
	presenceActiveMinSeconds   = 30.0
	presenceActiveMaxSeconds   = 120.0
	presenceInactiveMinSeconds = 20.0
	presenceInactiveMaxSeconds = 90.0
)

// presenceMixer wraps an inner TrackStream (SimpleLoop or CrossfadeLoop)
// and fades it in and out of audibility over time without ever pausing
// the inner stream itself — it always pulls a chunk from inner and scales
// it by a gain envelope driven by an active/inactive dwell-time state
// machine.
type presenceMixer struct {
	inner    TrackStream
	instance *theme.TrackInstance

	active           bool
	currentGain      float64
	targetGain       float64
	fadeSamplesTotal int
	fadeSamplesLeft  int
	samplesUntilFlip int
}

func newPresenceMixer(inner TrackStream, instance *theme.TrackInstance) *presenceMixer {
	p := &presenceMixer{
		inner:            inner,
		instance:         instance,
		fadeSamplesTotal: int(trackFadeSeconds * audio.SampleRate),
	}
	p.enterState(presenceFromBoundary(instance.Presence()))
	// The starting macro-state is already settled, not a transition from
	// silence or full volume — only later flips fade.
	p.currentGain = p.targetGain
	p.fadeSamplesLeft = 0
	return p
}

// presenceFromBoundary pins the starting macro-state at the boundaries
// (presence<=0 always inactive, presence>=1 always active) and otherwise
// starts active, matching scenario 1 ("wind is continuously audible" for
// presence 1.0; a partial-presence track begins audible and then decays).
func presenceFromBoundary(presence float64) bool {
	if presence <= 0.0 {
		return false
	}
	return true
}

func (p *presenceMixer) enterState(active bool) {
	presence := p.instance.Presence()
	p.active = active

	switch {
	case presence >= 1.0:
		p.targetGain = 1.0
		p.samplesUntilFlip = 1 << 30 // never flips while pinned active
	case presence <= 0.0:
		p.targetGain = 0.0
		p.samplesUntilFlip = 1 << 30
	case active:
		p.targetGain = 1.0
		dur := (presenceActiveMinSeconds + (presenceActiveMaxSeconds-presenceActiveMinSeconds)*presence) * uniformVariation()
		p.samplesUntilFlip = int(dur * audio.SampleRate)
	default:
		p.targetGain = 0.0
		dur := (presenceInactiveMaxSeconds - (presenceInactiveMaxSeconds-presenceInactiveMinSeconds)*presence) * uniformVariation()
		p.samplesUntilFlip = int(dur * audio.SampleRate)
	}

	p.fadeSamplesLeft = p.fadeSamplesTotal
}

func (p *presenceMixer) NextChunk() audio.Chunk {
	in := p.inner.NextChunk()
	out := make(audio.Chunk, audio.ChunkSize)

	for i := 0; i < audio.ChunkSize; i++ {
		p.stepGain()
		out[i] = audio.ScaleInt16(in[i], p.currentGain)

		p.samplesUntilFlip--
		if p.samplesUntilFlip <= 0 {
			p.enterState(!p.active)
		}
	}
	return out
}

// audible reports whether presenceMixer currently contributes any level
// above silence, for exclusiveGate — true through the fade-out, so the
// token isn't released mid-fade, false only once it has settled at zero.
func (p *presenceMixer) audible() bool {
	return p.currentGain > 0
}

// stepGain advances currentGain one sample toward targetGain along an
// equal-power curve over the fade window, or snaps instantly once the
// fade window has been fully consumed.
func (p *presenceMixer) stepGain() {
	if p.fadeSamplesLeft <= 0 || p.fadeSamplesTotal == 0 {
		p.currentGain = p.targetGain
		return
	}

	progress := 1.0 - float64(p.fadeSamplesLeft)/float64(p.fadeSamplesTotal)
	if p.targetGain > p.currentGain {
		p.currentGain = equalPowerFadeIn(progress)
	} else if p.targetGain < p.currentGain {
		p.currentGain = equalPowerFadeOut(progress)
	}
	p.fadeSamplesLeft--
}
