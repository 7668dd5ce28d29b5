package channel

import "sync"

// Manager owns the fixed pool of N channels created at startup (C10).
// It is stateless beyond channel ownership: the session-to-channel
// binding lives in the session package, not here.
type Manager struct {
	mu       sync.Mutex
	channels []*Channel
}

// NewManager creates n channels numbered 1..n and starts their
// generators.
func NewManager(n int) *Manager {
	m := &Manager{channels: make([]*Channel, n)}
	for i := 0; i < n; i++ {
		ch := New(i + 1)
		ch.Start()
		m.channels[i] = ch
	}
	return m
}

// Channel returns the channel with the given 1-based id, or nil.
func (m *Manager) Channel(id int) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// Available returns the lowest-numbered idle channel, or nil if every
// channel is currently playing.
func (m *Manager) Available() *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.channels {
		if ch.State() == StateIdle {
			return ch
		}
	}
	return nil
}

// All returns every channel in the pool, in ascending id order.
func (m *Manager) All() []*Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Channel, len(m.channels))
	copy(out, m.channels)
	return out
}

// Shutdown stops every channel's generator, waiting up to 2s each.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	channels := make([]*Channel, len(m.channels))
	copy(channels, m.channels)
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Shutdown()
	}
}
