package trackstream

import (
	"sync"

	"sonorium/internal/audio"
	"sonorium/internal/theme"
)

// ExclusionCoordinator (C4) is a per-theme arbiter granting at most one
// exclusive track a "playing audibly" token at a time, in FIFO order of
// request. There is no equivalent in the system this was distilled from —
// exclusivity there was only a stored flag exposed to the API, never
// enforced — so this is new, general-purpose arbitration grounded in the
// mutex-guarded manager pattern used throughout the rest of the codebase.
type ExclusionCoordinator struct {
	mu     sync.Mutex
	active string
	queue  []string
}

// NewExclusionCoordinator returns a coordinator with no active holder.
func NewExclusionCoordinator() *ExclusionCoordinator {
	return &ExclusionCoordinator{}
}

// TryAcquire grants the token to name if none is held and name is at the
// front of the FIFO queue (or the queue is empty), enqueues name
// otherwise, and returns whether the token was granted.
func (c *ExclusionCoordinator) TryAcquire(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == name {
		return true
	}
	if c.active != "" {
		c.enqueueLocked(name)
		return false
	}
	if len(c.queue) == 0 || c.queue[0] == name {
		c.active = name
		c.dequeueLocked(name)
		return true
	}
	c.enqueueLocked(name)
	return false
}

// Release gives up the token if name currently holds it. A no-op
// otherwise.
func (c *ExclusionCoordinator) Release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == name {
		c.active = ""
	}
}

// Active returns the name of the current token holder, or "" if none.
func (c *ExclusionCoordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *ExclusionCoordinator) enqueueLocked(name string) {
	for _, n := range c.queue {
		if n == name {
			return
		}
	}
	c.queue = append(c.queue, name)
}

func (c *ExclusionCoordinator) dequeueLocked(name string) {
	for i, n := range c.queue {
		if n == name {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}

// audibleReporter is implemented by stream strategies whose own emitted
// chunk can be silent while still "running" (sparse between one-shots,
// presenceMixer faded to zero). exclusiveGate consults it to know when a
// track has nothing worth the token, rather than inferring that from the
// raw decoded samples underneath — a continuous-loop strategy is never
// silent on its own, so that signal never fires for it.
type audibleReporter interface {
	audible() bool
}

// exclusiveGate wraps the outermost stream for a track (Sparse or
// PresenceMixer, not the raw loop underneath either of them) so it only
// produces output while holding the coordinator's token. It always pulls
// from inner, to keep position/timers advancing at the real-time rate and
// avoid a burst of stale audio when the token is finally granted, but
// only forwards the chunk while the token is held.
type exclusiveGate struct {
	inner       TrackStream
	name        string
	coordinator *ExclusionCoordinator
	holding     bool
}

func newExclusiveGate(inner TrackStream, instance *theme.TrackInstance, coordinator *ExclusionCoordinator) *exclusiveGate {
	return &exclusiveGate{inner: inner, name: instance.Name, coordinator: coordinator}
}

func (g *exclusiveGate) NextChunk() audio.Chunk {
	chunk := g.inner.NextChunk()

	wantsAudible := true
	if ar, ok := g.inner.(audibleReporter); ok {
		wantsAudible = ar.audible()
	}
	if !wantsAudible {
		// Nothing worth gating; give up the token so a queued track can
		// take over during this track's natural quiet stretch.
		if g.holding {
			g.coordinator.Release(g.name)
			g.holding = false
		}
		return chunk
	}

	if !g.coordinator.TryAcquire(g.name) {
		g.holding = false
		return make(audio.Chunk, audio.ChunkSize)
	}

	g.holding = true
	return chunk
}
