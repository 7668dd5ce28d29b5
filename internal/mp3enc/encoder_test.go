package mp3enc

import (
	"bytes"
	"testing"

	"sonorium/internal/audio"
)

func TestWriteChunkAccumulatesUntilBlock(t *testing.T) {
	var buf bytes.Buffer
	enc := New(&buf)

	// One chunk (1024 samples) is short of one shine block (1152 samples);
	// no bytes should be produced yet.
	if err := enc.WriteChunk(audio.NewSilentChunk()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output before a full block accumulates, got %d bytes", buf.Len())
	}

	// A second chunk pushes the buffer past 1152 samples and should flush.
	if err := enc.WriteChunk(audio.NewSilentChunk()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected output once a full encoder block accumulated")
	}
}

func TestCloseFlushesRemainder(t *testing.T) {
	var buf bytes.Buffer
	enc := New(&buf)

	if err := enc.WriteChunk(audio.NewSilentChunk()); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected Close to flush the remaining partial block")
	}
}

func TestWriteAfterCloseErrors(t *testing.T) {
	var buf bytes.Buffer
	enc := New(&buf)
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := enc.WriteChunk(audio.NewSilentChunk()); err == nil {
		t.Fatal("expected error writing to a closed encoder")
	}
}
