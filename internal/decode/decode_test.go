package decode

import "testing"

func TestIsSupported(t *testing.T) {
	cases := map[string]bool{
		"track.mp3":  true,
		"track.WAV":  true,
		"track.flac": true,
		"track.ogg":  true,
		"track.aiff": false,
		"track":      false,
	}
	for path, want := range cases {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSupportedExtensionsCount(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != 4 {
		t.Fatalf("expected 4 supported extensions, got %d: %v", len(exts), exts)
	}
}
