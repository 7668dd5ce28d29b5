// Package channel implements Channel (C6), ChannelClient (C7), and
// ChannelManager (C10): the persistent broadcast endpoints that turn a
// ThemeStream into an HTTP-consumable MP3 byte stream shared by any
// number of listeners.
package channel

import (
	"log"
	"sync"
	"time"

	"sonorium/internal/audio"
	"sonorium/internal/mixer"
)

const (
	ringCapacity          = 10
	themeCrossfadeSeconds = 3.0
	chunkDuration         = time.Duration(audio.ChunkSize) * time.Second / audio.SampleRate
)

var themeCrossfadeSamples = int(themeCrossfadeSeconds * audio.SampleRate)

// State is the channel's playing/idle state, exposed for observability;
// the background generator runs continuously regardless of state so
// connected listeners never see the stream end.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
)

type ringEntry struct {
	seq   uint64
	chunk audio.Chunk
}

type transition struct {
	old, new        *mixer.ThemeStream
	pos             int
	fadeOut, fadeIn []float64
}

// Channel is a numbered broadcast slot. One generator goroutine produces
// PCM chunks into a bounded ring; any number of ChannelClients read from
// the ring independently.
type Channel struct {
	ID int

	mu           sync.Mutex
	state        State
	current      *mixer.ThemeStream
	pending      *transition
	themeVersion uint64
	ring         []ringEntry
	seq          uint64
	clientCount  int

	running  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs an idle channel. Call Start to begin its generator.
func New(id int) *Channel {
	return &Channel{ID: id, state: StateIdle, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

// Start launches the background generator goroutine. Safe to call once;
// ChannelManager calls it for every channel at process start.
func (c *Channel) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.generatorLoop()
}

// Shutdown signals the generator to exit and waits up to 2s for it.
func (c *Channel) Shutdown() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	select {
	case <-c.doneCh:
	case <-time.After(2 * time.Second):
		log.Printf("[channel %d] shutdown timed out waiting for generator", c.ID)
	}
}

// State returns the channel's current playing/idle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the ThemeStream currently bound to the channel, or nil
// if idle. Exposed so SessionManager can push a live master-volume change
// straight to the mixer without re-threading the value through SetTheme.
func (c *Channel) Current() *mixer.ThemeStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return c.pending.new
	}
	return c.current
}

// ThemeVersion returns the monotonic counter incremented on every theme
// set or stop, exposed for observability only.
func (c *Channel) ThemeVersion() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.themeVersion
}

// ClientCount returns the number of currently connected ChannelClients.
func (c *Channel) ClientCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientCount
}

// CurrentSequence returns the most recently appended chunk's sequence
// number.
func (c *Channel) CurrentSequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// SetTheme assigns ts to the channel. If the channel already has a theme
// bound, the swap crossfades over themeCrossfadeSamples instead of
// cutting directly.
func (c *Channel) SetTheme(ts *mixer.ThemeStream) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.themeVersion++
	c.state = StatePlaying

	if c.current == nil || c.pending != nil {
		// No theme currently playing, or a crossfade already mid-flight:
		// replace directly rather than stacking transitions.
		c.current = ts
		c.pending = nil
		return
	}

	fadeOut, fadeIn := audio.EqualPowerCurves(themeCrossfadeSamples)
	c.pending = &transition{old: c.current, new: ts, fadeOut: fadeOut, fadeIn: fadeIn}
}

// Stop clears the bound theme; the generator keeps running and emits
// silence, matching the "idle channels stay connected" requirement.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.themeVersion++
	c.current = nil
	c.pending = nil
	c.state = StateIdle
}

func (c *Channel) clientConnected() {
	c.mu.Lock()
	c.clientCount++
	c.mu.Unlock()
}

func (c *Channel) clientDisconnected() {
	c.mu.Lock()
	if c.clientCount > 0 {
		c.clientCount--
	}
	c.mu.Unlock()
}

// ChunksSince returns every ring entry with sequence strictly greater
// than since, oldest first. If since has fallen off the ring's tail, the
// caller implicitly catches up at the ring's current head — there is no
// error, matching "slow clients lose chunks but never corrupt others."
func (c *Channel) ChunksSince(since uint64) []struct {
	Seq   uint64
	Chunk audio.Chunk
} {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []struct {
		Seq   uint64
		Chunk audio.Chunk
	}
	for _, e := range c.ring {
		if e.seq > since {
			out = append(out, struct {
				Seq   uint64
				Chunk audio.Chunk
			}{e.seq, e.chunk})
		}
	}
	return out
}

func (c *Channel) appendChunk(chunk audio.Chunk) {
	c.mu.Lock()
	c.seq++
	c.ring = append(c.ring, ringEntry{seq: c.seq, chunk: chunk})
	if len(c.ring) > ringCapacity {
		c.ring = c.ring[len(c.ring)-ringCapacity:]
	}
	c.mu.Unlock()
}

// nextChunk computes the one chunk to emit this tick, driving any
// in-flight theme crossfade to completion.
func (c *Channel) nextChunk() audio.Chunk {
	c.mu.Lock()
	pending := c.pending
	current := c.current
	c.mu.Unlock()

	if pending == nil {
		if current == nil {
			return audio.NewSilentChunk()
		}
		return current.NextChunk()
	}

	oldChunk := pending.old.NextChunk()
	newChunk := pending.new.NextChunk()
	mixed := make(audio.Chunk, audio.ChunkSize)
	n := len(pending.fadeOut)
	for i := range mixed {
		p := pending.pos + i
		if p >= n {
			p = n - 1
		}
		o := float64(oldChunk[i]) * pending.fadeOut[p]
		nw := float64(newChunk[i]) * pending.fadeIn[p]
		mixed[i] = clampInt16(o + nw)
	}

	c.mu.Lock()
	pending.pos += audio.ChunkSize
	if pending.pos >= n {
		c.current = pending.new
		c.pending = nil
	}
	c.mu.Unlock()

	return mixed
}

func clampInt16(v float64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

// generatorLoop is the channel's single background producer: it paces
// itself to wall-clock time off the PCM boundary, never off the encoder,
// per the design note.
func (c *Channel) generatorLoop() {
	defer close(c.doneCh)

	start := time.Now()
	var audioTime time.Duration

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		chunk := c.nextChunk()
		c.appendChunk(chunk)

		audioTime += chunkDuration
		ahead := audioTime - time.Since(start)
		if ahead > 0 {
			select {
			case <-time.After(ahead):
			case <-c.stopCh:
				return
			}
		}
	}
}
