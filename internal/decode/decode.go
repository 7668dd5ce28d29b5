// Package decode turns theme source files (mp3, wav, flac, ogg) into mono
// float32 PCM at the canonical sample rate. None of the supported formats
// expose reliable sample-accurate seeking through their pure-Go decoders,
// so every decoder here reads the whole file up front; TrackStream
// strategies are responsible for any windowing or looping on top of that.
package decode

import (
	"fmt"
	"path/filepath"
	"strings"

	"sonorium/internal/audio"
)

// Source is a fully decoded source file, resampled to the canonical rate.
type Source struct {
	Samples []float32 // mono, canonical sample rate
	Rate    int       // always audio.SampleRate after Load
}

// Len returns the duration of the source in samples.
func (s *Source) Len() int { return len(s.Samples) }

// Duration returns the duration of the source in seconds.
func (s *Source) Duration() float64 {
	if s.Rate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.Rate)
}

type decoder interface {
	decodeMono(path string) (samples []float32, sourceRate int, err error)
}

var decodersByExt = map[string]decoder{
	".mp3":  mp3Decoder{},
	".wav":  wavDecoder{},
	".flac": flacDecoder{},
	".ogg":  oggDecoder{},
}

// SupportedExtensions lists the file extensions Load can decode.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(decodersByExt))
	for ext := range decodersByExt {
		exts = append(exts, ext)
	}
	return exts
}

// IsSupported reports whether path has a recognized audio extension.
func IsSupported(path string) bool {
	_, ok := decodersByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load decodes path fully and resamples to the canonical sample rate.
func Load(path string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := decodersByExt[ext]
	if !ok {
		return nil, fmt.Errorf("decode: unsupported extension %q for %s", ext, path)
	}

	samples, rate, err := d.decodeMono(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if rate != audio.SampleRate {
		samples = audio.ResampleLinear(samples, rate, audio.SampleRate)
	}

	return &Source{Samples: samples, Rate: audio.SampleRate}, nil
}

// CountSamples returns the duration in samples without keeping the decoded
// buffer around, used when a caller only needs Recording.duration_samples
// and would rather not hold the whole file in memory.
func CountSamples(path string) (int, int, error) {
	src, err := Load(path)
	if err != nil {
		return 0, 0, err
	}
	return len(src.Samples), src.Rate, nil
}
