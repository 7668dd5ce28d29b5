package channel

import (
	"io"
	"time"

	"sonorium/internal/mp3enc"
)

const emptyPollInterval = 10 * time.Millisecond

// Client is a per-HTTP-listener reader of a Channel's ring buffer. Each
// Client owns an independent mp3enc.Encoder; there is no encoder state
// shared across clients, so one stalled listener never affects another.
type Client struct {
	channel      *Channel
	encoder      *mp3enc.Encoder
	lastSequence uint64
}

// NewClient registers a client against ch, writing MP3 bytes to w, and
// marks it connected starting from the channel's current sequence — it
// only ever sees chunks produced from this point on.
func NewClient(ch *Channel, w io.Writer) *Client {
	ch.clientConnected()
	return &Client{
		channel:      ch,
		encoder:      mp3enc.New(w),
		lastSequence: ch.CurrentSequence(),
	}
}

// Run streams MP3 bytes until stop fires or a write fails (e.g. the
// listener's socket closed). It always decrements the channel's client
// count and closes the encoder on every exit path.
func (cl *Client) Run(stop <-chan struct{}) error {
	defer cl.channel.clientDisconnected()
	defer cl.encoder.Close()

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		entries := cl.channel.ChunksSince(cl.lastSequence)
		if len(entries) == 0 {
			if err := cl.encoder.WriteSilence(); err != nil {
				return err
			}
			select {
			case <-time.After(emptyPollInterval):
			case <-stop:
				return nil
			}
			continue
		}

		for _, e := range entries {
			cl.lastSequence = e.Seq
			if err := cl.encoder.WriteChunk(e.Chunk); err != nil {
				return err
			}
		}
	}
}
