package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

type flacDecoder struct{}

func (flacDecoder) decodeMono(path string) ([]float32, int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open flac: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels <= 0 {
		channels = 1
	}
	maxAmp := float32(int64(1) << (uint(stream.Info.BitsPerSample) - 1))

	var mono []float32
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decode flac frame: %w", err)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			var sum float32
			for c := 0; c < channels && c < len(frame.Subframes); c++ {
				sum += float32(frame.Subframes[c].Samples[i]) / maxAmp
			}
			mono = append(mono, sum/float32(channels))
		}
	}

	return mono, int(stream.Info.SampleRate), nil
}
