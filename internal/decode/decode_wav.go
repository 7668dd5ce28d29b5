package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

type wavDecoder struct{}

func (wavDecoder) decodeMono(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read wav pcm: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	numSamples := len(buf.Data) / channels
	mono := make([]float32, numSamples)
	maxAmp := float32(int(1) << (uint(buf.SourceBitDepth-1)))
	if buf.SourceBitDepth == 0 {
		maxAmp = 32768
	}

	for i := 0; i < numSamples; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / maxAmp
		}
		mono[i] = sum / float32(channels)
	}

	return mono, buf.Format.SampleRate, nil
}
