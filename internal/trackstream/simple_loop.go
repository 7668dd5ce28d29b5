package trackstream

import (
	"sonorium/internal/audio"
	"sonorium/internal/decode"
	"sonorium/internal/theme"
)

// simpleLoop is a hard-cut loop: on reaching the end of the decoded
// buffer it wraps back to sample zero with no crossfade.
type simpleLoop struct {
	source   *decode.Source
	instance *theme.TrackInstance
	pos      int
}

func newSimpleLoop(src *decode.Source, instance *theme.TrackInstance, randomStart bool) *simpleLoop {
	return &simpleLoop{
		source:   src,
		instance: instance,
		pos:      startOffset(len(src.Samples), randomStart),
	}
}

func (s *simpleLoop) NextChunk() audio.Chunk {
	chunk := make(audio.Chunk, audio.ChunkSize)
	total := len(s.source.Samples)
	if total == 0 {
		return chunk
	}

	volume := float32(s.instance.Volume())
	for i := 0; i < audio.ChunkSize; i++ {
		if s.pos >= total {
			s.pos = 0
		}
		v := int32(s.source.Samples[s.pos] * volume * 32768.0)
		chunk[i] = clampInt16(v)
		s.pos++
	}
	return chunk
}
