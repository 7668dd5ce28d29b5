package trackstream

import "math/rand"

// randIntn and uniformVariation are the only two points of randomness in
// the package, isolated here so tests can reason about every other
// strategy deterministically.
func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n)
}

// uniformVariation draws from uniform(0.7, 1.3), the jitter applied to
// every dwell-time and silence-interval formula in the design.
func uniformVariation() float64 {
	return 0.7 + rand.Float64()*0.6
}
