package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

type mp3Decoder struct{}

// decodeMono mirrors the teacher's MP3Reader: go-mp3 always decodes to
// interleaved stereo 16-bit PCM and does not support seeking, so the whole
// file is read up front and downmixed by averaging channels.
func (mp3Decoder) decodeMono(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open mp3: %w", err)
	}
	defer file.Close()

	dec, err := mp3.NewDecoder(file)
	if err != nil {
		return nil, 0, fmt.Errorf("new mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, 0, fmt.Errorf("read mp3 pcm: %w", err)
	}

	numSamples := len(pcm) / 4 // 2 bytes * 2 channels
	mono := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		mono[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
	}

	return mono, dec.SampleRate(), nil
}
