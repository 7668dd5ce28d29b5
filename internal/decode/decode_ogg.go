package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
	"sonorium/internal/audio"
)

type oggDecoder struct{}

func (oggDecoder) decodeMono(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open ogg: %w", err)
	}
	defer file.Close()

	r, err := oggvorbis.NewReader(file)
	if err != nil {
		return nil, 0, fmt.Errorf("new ogg reader: %w", err)
	}

	channels := r.Channels()
	if channels <= 0 {
		channels = 1
	}

	buf := make([]float32, 4096*channels)
	var interleaved []float32
	for {
		n, err := r.Read(buf)
		interleaved = append(interleaved, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decode ogg: %w", err)
		}
	}

	return audio.DownmixToMono(interleaved, channels), r.SampleRate(), nil
}
