// Package cycle implements CycleManager (C11): a single background
// ticker that rotates a playing session's theme on a fixed or randomized
// cadence, independent of any per-session timer goroutine.
package cycle

import (
	"log"
	"math/rand"
	"sync"
	"time"
)

const tickInterval = 10 * time.Second

// SessionSource is the subset of session.Manager CycleManager depends on.
// Kept as an interface so the cycle package never imports session
// directly and the two can be tested independently.
type SessionSource interface {
	PlayingWithCycle() []CycleCandidate
	UpdateTheme(sessionID, themeID string) error
}

// CycleCandidate is a minimal view of a playing, cycle-enabled session,
// enough to decide whether and how to advance its theme.
type CycleCandidate struct {
	SessionID       string
	CurrentThemeID  string
	IntervalMinutes int
	Randomize       bool
	ThemeIDs        []string
	LastChange      time.Time
}

// Manager owns the single ticker; it never spawns a goroutine per
// session.
type Manager struct {
	sessions SessionSource

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a CycleManager bound to sessions. Call Start to begin
// ticking.
func New(sessions SessionSource) *Manager {
	return &Manager{sessions: sessions}
}

// Start launches the background ticker. Safe to call once.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.loop()
}

// Stop halts the ticker and waits for the current tick to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh := m.stopCh
	doneCh := m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (m *Manager) loop() {
	defer close(m.doneCh)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Manager) tick() {
	now := time.Now()
	for _, c := range m.sessions.PlayingWithCycle() {
		if c.IntervalMinutes < 1 {
			continue
		}
		elapsed := now.Sub(c.LastChange)
		if elapsed < time.Duration(c.IntervalMinutes)*time.Minute {
			continue
		}
		next := nextTheme(c)
		if next == "" {
			continue
		}
		if err := m.sessions.UpdateTheme(c.SessionID, next); err != nil {
			log.Printf("[cycle] session %s: update theme: %v", c.SessionID, err)
			continue
		}
		log.Printf("[cycle] session %s: advanced theme %s -> %s", c.SessionID, c.CurrentThemeID, next)
	}
}

// nextTheme picks the session's next theme id: uniformly at random
// excluding the current one if randomize is set, otherwise the next
// entry in list order (wrapping).
func nextTheme(c CycleCandidate) string {
	ids := c.ThemeIDs
	if len(ids) == 0 {
		return ""
	}
	if len(ids) == 1 {
		if ids[0] == c.CurrentThemeID {
			return ""
		}
		return ids[0]
	}

	if c.Randomize {
		choices := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != c.CurrentThemeID {
				choices = append(choices, id)
			}
		}
		if len(choices) == 0 {
			return ""
		}
		return choices[rand.Intn(len(choices))]
	}

	for i, id := range ids {
		if id == c.CurrentThemeID {
			return ids[(i+1)%len(ids)]
		}
	}
	return ids[0]
}
