package audio

import "testing"

func TestResampleLinearSameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := ResampleLinear(in, 44100, 44100)
	if len(out) != len(in) {
		t.Fatalf("expected same length, got %d", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: expected %f got %f", i, in[i], out[i])
		}
	}
}

func TestResampleLinearDownsample(t *testing.T) {
	in := make([]float32, 100)
	for i := range in {
		in[i] = float32(i)
	}
	out := ResampleLinear(in, 48000, 24000)
	if len(out) == 0 || len(out) >= len(in) {
		t.Fatalf("expected shorter output, got %d from %d", len(out), len(in))
	}
}

func TestDownmixToMonoStereo(t *testing.T) {
	interleaved := []float32{1, -1, 0.5, 0.5}
	mono := DownmixToMono(interleaved, 2)
	want := []float32{0, 0.5}
	for i := range want {
		if mono[i] != want[i] {
			t.Fatalf("sample %d: got %f want %f", i, mono[i], want[i])
		}
	}
}

func TestFloatToPCM16Clips(t *testing.T) {
	samples := []float32{2.0, -2.0, 0}
	out := FloatToPCM16(samples, 1.0)
	if out[0] != 32767 {
		t.Fatalf("expected clip to max, got %d", out[0])
	}
	if out[1] != -32768 {
		t.Fatalf("expected clip to min, got %d", out[1])
	}
	if out[2] != 0 {
		t.Fatalf("expected zero, got %d", out[2])
	}
}

func TestEqualPowerCurvesBoundaries(t *testing.T) {
	fadeOut, fadeIn := EqualPowerCurves(100)
	if fadeOut[0] < 0.99 {
		t.Fatalf("fade out should start near 1, got %f", fadeOut[0])
	}
	if fadeIn[0] > 0.01 {
		t.Fatalf("fade in should start near 0, got %f", fadeIn[0])
	}
	last := len(fadeOut) - 1
	if fadeOut[last] > 0.01 {
		t.Fatalf("fade out should end near 0, got %f", fadeOut[last])
	}
	if fadeIn[last] < 0.99 {
		t.Fatalf("fade in should end near 1, got %f", fadeIn[last])
	}
}

func TestMixInt16Clips(t *testing.T) {
	if got := MixInt16(32000, 32000); got != 32767 {
		t.Fatalf("expected clip to max, got %d", got)
	}
	if got := MixInt16(-32000, -32000); got != -32768 {
		t.Fatalf("expected clip to min, got %d", got)
	}
}

func TestIsSilent(t *testing.T) {
	c := NewSilentChunk()
	if !c.IsSilent() {
		t.Fatal("expected new chunk to be silent")
	}
	c[10] = 1
	if c.IsSilent() {
		t.Fatal("expected chunk to no longer be silent")
	}
}
