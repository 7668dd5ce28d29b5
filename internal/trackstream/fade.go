package trackstream

import "math"

// equalPowerFadeIn and equalPowerFadeOut evaluate the same curves as
// audio.EqualPowerCurves but at an arbitrary progress in [0,1], for state
// machines like the presence mixer that need the instantaneous value
// rather than a precomputed table.
func equalPowerFadeIn(progress float64) float64 {
	return math.Sin(progress * math.Pi / 2)
}

func equalPowerFadeOut(progress float64) float64 {
	return math.Cos(progress * math.Pi / 2)
}
