package theme

import (
	"log"
	"sync"

	"sonorium/internal/decode"
)

const defaultDurationFallbackSeconds = 60.0

// Recording is an immutable descriptor for a single audio file: its path
// and a lazily computed, memoized duration. It never mutates after
// construction beyond the one-time duration memoization.
type Recording struct {
	Path string

	once            sync.Once
	durationSamples uint64
	sourceRate      int
}

// NewRecording constructs a Recording for path. Duration is not computed
// until first queried.
func NewRecording(path string) *Recording {
	return &Recording{Path: path}
}

// DurationSamples returns the recording's duration in canonical-rate
// samples, decoding the file at most once per process. Decode failures are
// logged and default to a 60-second duration rather than propagating —
// per spec, a bad file degrades the mix, it never aborts it.
func (r *Recording) DurationSamples() uint64 {
	r.once.Do(func() {
		n, rate, err := decode.CountSamples(r.Path)
		if err != nil {
			log.Printf("[theme] recording %s: duration probe failed, defaulting to %.0fs: %v",
				r.Path, defaultDurationFallbackSeconds, err)
			r.sourceRate = rateOrDefault(0)
			r.durationSamples = uint64(defaultDurationFallbackSeconds * float64(r.sourceRate))
			return
		}
		r.sourceRate = rateOrDefault(rate)
		r.durationSamples = uint64(n)
	})
	return r.durationSamples
}

// IsShort reports whether the recording's duration is below
// thresholdSeconds.
func (r *Recording) IsShort(thresholdSeconds float64) bool {
	samples := r.DurationSamples()
	rate := rateOrDefault(r.sourceRate)
	return float64(samples)/float64(rate) < thresholdSeconds
}

func rateOrDefault(rate int) int {
	if rate <= 0 {
		return 44100
	}
	return rate
}
