// Package mp3enc wraps the pure-Go shine-mp3 encoder for streaming use:
// every ChannelClient owns one Encoder with no shared state, matching the
// no-shared-encoder invariant in the design.
package mp3enc

import (
	"fmt"
	"io"
	"sync"

	"github.com/braheezy/shine-mp3/pkg/mp3"

	"sonorium/internal/audio"
)

const bitBlockSamples = 1152 // shine encodes in 1152-sample blocks per channel

// Encoder accumulates mono int16 PCM and emits CBR MP3 bytes to w as soon
// as a full encoder block is available.
type Encoder struct {
	mu      sync.Mutex
	enc     *mp3.Encoder
	w       io.Writer
	buffer  []int16
	closed  bool
}

// New builds an Encoder writing mono 44.1kHz MP3 to w.
func New(w io.Writer) *Encoder {
	return &Encoder{
		enc:    mp3.NewEncoder(audio.SampleRate, 1),
		w:      w,
		buffer: make([]int16, 0, bitBlockSamples*4),
	}
}

// WriteChunk appends one PCM chunk, flushing complete MP3 blocks to the
// underlying writer as they accumulate.
func (e *Encoder) WriteChunk(chunk audio.Chunk) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("mp3enc: encoder is closed")
	}

	e.buffer = append(e.buffer, chunk...)

	flushable := (len(e.buffer) / bitBlockSamples) * bitBlockSamples
	if flushable == 0 {
		return nil
	}

	if err := e.enc.Write(e.w, e.buffer[:flushable]); err != nil {
		return fmt.Errorf("mp3enc: encode: %w", err)
	}
	e.buffer = append(e.buffer[:0], e.buffer[flushable:]...)
	return nil
}

// WriteSilence is a convenience for keep-alive padding between real
// chunks — ChannelClient uses this when the ring has nothing new.
func (e *Encoder) WriteSilence() error {
	return e.WriteChunk(audio.NewSilentChunk())
}

// Close flushes any remaining buffered samples, zero-padded to a full
// encoder block, and marks the encoder unusable.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if len(e.buffer) == 0 {
		return nil
	}

	for len(e.buffer)%bitBlockSamples != 0 {
		e.buffer = append(e.buffer, 0)
	}
	if err := e.enc.Write(e.w, e.buffer); err != nil {
		return fmt.Errorf("mp3enc: final flush: %w", err)
	}
	return nil
}
