// Package session implements SpeakerSelection, Session, and
// SessionManager (C9): CRUD for sessions, speaker-set resolution, and the
// live-update logic that keeps a playing session's audio mix, theme, and
// speaker set mutable without ever dropping to silence.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"sonorium/internal/atomicfile"
	"sonorium/internal/channel"
	"sonorium/internal/cycle"
	"sonorium/internal/mixer"
	"sonorium/internal/sonoriumerr"
	"sonorium/internal/speaker"
	"sonorium/internal/theme"
)

const (
	defaultMaxSessions = 20
	localSpeakerID      = "local"
)

// ThemeProvider resolves theme ids against the scanned theme library
// (internal/theme.ScanDir's result set, held by the caller).
type ThemeProvider interface {
	Theme(id string) *theme.Theme
	AllIDs() []string
}

// Manager owns every Session and the speaker groups they may reference.
// It binds sessions to channels via the injected channel.Manager and
// drives network speakers through the injected speaker.MediaControl, but
// never recreates a ThemeStream just to change a track's settings — that
// is mixer.ThemeStream's job.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	groups      map[string]*SpeakerGroup
	maxSessions int

	channels    *channel.Manager
	themes      ThemeProvider
	topo        Topology
	media       speaker.MediaControl
	localByID   map[string]*speaker.LocalStreamPlayer
	streamBase  string
	persistPath string
}

// Options configures a new Manager. StreamBaseURL is prefixed to
// "/stream/channel{n}" to build the URL handed to network speakers and
// the local player; PersistPath is where session/group state is saved,
// empty to disable persistence.
type Options struct {
	Channels      *channel.Manager
	Themes        ThemeProvider
	Topology      Topology
	Media         speaker.MediaControl
	MaxSessions   int
	StreamBaseURL string
	PersistPath   string
}

// NewManager builds a SessionManager. If Media is nil, speaker.NoopMediaControl
// is used.
func NewManager(opts Options) *Manager {
	max := opts.MaxSessions
	if max <= 0 {
		max = defaultMaxSessions
	}
	media := opts.Media
	if media == nil {
		media = speaker.NoopMediaControl{}
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		groups:      make(map[string]*SpeakerGroup),
		maxSessions: max,
		channels:    opts.Channels,
		themes:      opts.Themes,
		topo:        opts.Topology,
		media:       media,
		localByID:   make(map[string]*speaker.LocalStreamPlayer),
		streamBase:  opts.StreamBaseURL,
		persistPath: opts.PersistPath,
	}
}

// CreateOptions are the parameters accepted by Create. Exactly one of
// SpeakerGroupID or Selection should be set; an empty Selection with no
// group means the session targets no speakers until updated.
type CreateOptions struct {
	ThemeID        string           `json:"theme_id"`
	PresetID       string           `json:"preset_id"`
	SpeakerGroupID string           `json:"speaker_group_id"`
	Selection      SpeakerSelection `json:"selection"`
	CustomName     string           `json:"custom_name"`
	InitialVolume  int              `json:"initial_volume"`
}

// Create builds and persists a new session. Returns a sonoriumerr with
// KindConflict (LIMIT_EXCEEDED) if the configured max-sessions cap would
// be exceeded.
func (m *Manager) Create(opts CreateOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions {
		return nil, sonoriumerr.Conflict("session.create", fmt.Errorf("LIMIT_EXCEEDED: max %d sessions", m.maxSessions))
	}

	volume := opts.InitialVolume
	if volume <= 0 {
		volume = 50
	}
	if volume > 100 {
		volume = 100
	}

	s := &Session{
		ID:             uuid.New().String(),
		ThemeID:        opts.ThemeID,
		PresetID:       opts.PresetID,
		SpeakerGroupID: opts.SpeakerGroupID,
		Selection:      opts.Selection,
		Volume:         volume,
		CreatedAt:      time.Now(),
	}

	if opts.CustomName != "" {
		s.Name = opts.CustomName
		s.Source = SourceCustom
	} else {
		var group *SpeakerGroup
		if opts.SpeakerGroupID != "" {
			group = m.groups[opts.SpeakerGroupID]
		}
		s.Name = GenerateName(opts.Selection, group, m.topo)
		s.Source = autoSourceFor(group, opts.Selection)
	}

	m.sessions[s.ID] = s
	m.persistLocked()
	log.Printf("[session] created %s (%q)", s.ID, s.Name)
	return s.Clone(), nil
}

func autoSourceFor(group *SpeakerGroup, sel SpeakerSelection) Source {
	switch {
	case group != nil:
		return SourceAutoGroup
	case len(sel.IncludeFloors) == 1 && len(sel.IncludeAreas) == 0 && len(sel.IncludeSpeakers) == 0:
		return SourceAutoFloor
	case len(sel.IncludeAreas) >= 1 && len(sel.IncludeFloors) == 0 && len(sel.IncludeSpeakers) == 0:
		return SourceAutoArea
	default:
		return SourceAutoGroup
	}
}

// Get returns a clone of the named session, or a KindNotFound error.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, sonoriumerr.NotFound("session.get", fmt.Errorf("session %s", id))
	}
	return s.Clone(), nil
}

// List returns every session, in no particular order.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out
}

func (m *Manager) streamURL(channelID int) string {
	return fmt.Sprintf("%s/stream/channel%d", m.streamBase, channelID)
}

// resolvedSpeakers returns the session's resolved network speakers (the
// "local" sentinel filtered out) and whether local playback is included.
func (m *Manager) resolvedSpeakers(s *Session) (network []string, local bool) {
	sel := s.Selection
	if s.SpeakerGroupID != "" {
		if g, ok := m.groups[s.SpeakerGroupID]; ok {
			sel = g.Selection
		}
	}
	for _, sp := range sel.Resolve(m.topo) {
		if sp == localSpeakerID {
			local = true
			continue
		}
		network = append(network, sp)
	}
	return network, local
}

// GetResolvedSpeakers returns the concrete speaker ids (including the
// "local" sentinel, if selected) a session currently targets.
func (m *Manager) GetResolvedSpeakers(id string) ([]string, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, sonoriumerr.NotFound("session.get_resolved_speakers", fmt.Errorf("session %s", id))
	}
	network, local := m.resolvedSpeakers(s)
	if local {
		network = append(network, localSpeakerID)
	}
	return network, nil
}

// GetSpeakerSummary returns a human-readable rendering of a session's
// resolved speakers, e.g. for a status display — a convenience the
// distilled control surface doesn't name but that falls naturally out of
// GenerateName's machinery.
func (m *Manager) GetSpeakerSummary(id string) (string, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	var group *SpeakerGroup
	if ok && s.SpeakerGroupID != "" {
		group = m.groups[s.SpeakerGroupID]
	}
	m.mu.Unlock()
	if !ok {
		return "", sonoriumerr.NotFound("session.get_speaker_summary", fmt.Errorf("session %s", id))
	}
	return GenerateName(s.Selection, group, m.topo), nil
}

// Play assigns a channel (reusing the one a Pause left bound), binds the
// session's theme, starts streaming to every resolved speaker, and marks
// the session playing. Requires a theme.
func (m *Manager) Play(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.play", fmt.Errorf("session %s", id))
	}
	if s.ThemeID == "" {
		m.mu.Unlock()
		return sonoriumerr.Invalid("session.play", fmt.Errorf("session %s has no theme", id))
	}
	th := m.themes.Theme(s.ThemeID)
	if th == nil {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.play", fmt.Errorf("theme %s", s.ThemeID))
	}
	var ch *channel.Channel
	if s.ChannelID != 0 {
		// Paused: resume on the channel Pause left bound.
		ch = m.channels.Channel(s.ChannelID)
	}
	if ch == nil {
		ch = m.channels.Available()
	}
	if ch == nil {
		m.mu.Unlock()
		return sonoriumerr.Unavailable("session.play", fmt.Errorf("no free channel"))
	}

	if cur := ch.Current(); cur != nil && cur.Theme() == th {
		cur.SetOutputGain(masterGainFor(s.Volume))
	} else {
		ms := mixer.New(th, false)
		ms.SetOutputGain(masterGainFor(s.Volume))
		ch.SetTheme(ms)
	}

	s.ChannelID = ch.ID
	s.IsPlaying = true
	s.LastPlayed = time.Now()
	if s.Cycle != nil && s.Cycle.Enabled {
		s.lastCycleChange = time.Now()
	}
	network, local := m.resolvedSpeakers(s)
	streamURL := m.streamURL(ch.ID)
	volumeFrac := float64(s.Volume) / 100.0
	m.persistLocked()
	m.mu.Unlock()

	if local {
		m.startLocal(id, streamURL, volumeFrac)
	}
	if len(network) > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := m.media.PlayMediaMulti(ctx, network, streamURL); err != nil {
				log.Printf("[session] %s: play speakers: %v", id, err)
			}
			if err := m.media.SetVolumeMulti(ctx, network, volumeFrac); err != nil {
				log.Printf("[session] %s: set initial volume: %v", id, err)
			}
		}()
	}
	return nil
}

func masterGainFor(volume int) float64 {
	return 6.0 * (float64(volume) / 100.0)
}

func (m *Manager) startLocal(sessionID, streamURL string, volume float64) {
	m.mu.Lock()
	p, exists := m.localByID[sessionID]
	if !exists {
		p = speaker.NewLocalStreamPlayer(streamURL, "")
		m.localByID[sessionID] = p
	}
	m.mu.Unlock()

	p.SetVolume(volume)
	if err := p.Start(); err != nil {
		log.Printf("[session] %s: local player: %v", sessionID, err)
	}
}

func (m *Manager) stopLocal(sessionID string) {
	m.mu.Lock()
	p, ok := m.localByID[sessionID]
	if ok {
		delete(m.localByID, sessionID)
	}
	m.mu.Unlock()
	if ok {
		p.Stop()
	}
}

// Pause stops playback on every speaker but keeps the channel bound, so
// resuming doesn't need a fresh ThemeStream.
func (m *Manager) Pause(id string) error {
	return m.stopSpeakersOnly(id, false)
}

// Stop stops playback on every speaker and releases the channel back to
// ChannelManager.
func (m *Manager) Stop(id string) error {
	return m.stopSpeakersOnly(id, true)
}

func (m *Manager) stopSpeakersOnly(id string, releaseChannel bool) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.stop", fmt.Errorf("session %s", id))
	}
	network, local := m.resolvedSpeakers(s)
	s.IsPlaying = false
	channelID := s.ChannelID
	if releaseChannel {
		s.ChannelID = 0
	}
	m.persistLocked()
	m.mu.Unlock()

	if local {
		m.stopLocal(id)
	}
	if len(network) > 0 {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			var err error
			if releaseChannel {
				err = m.media.StopMulti(ctx, network)
			} else {
				err = m.media.PauseMulti(ctx, network)
			}
			if err != nil {
				log.Printf("[session] %s: stop/pause speakers: %v", id, err)
			}
		}()
	}

	if releaseChannel && channelID != 0 {
		if ch := m.channels.Channel(channelID); ch != nil {
			ch.Stop()
		}
	}
	return nil
}

// StopAll stops every playing session — used on graceful shutdown, a
// convenience the distilled control surface leaves implicit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		if s.IsPlaying {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(id); err != nil {
			log.Printf("[session] stop-all: %s: %v", id, err)
		}
	}
}

// UpdateTheme reassigns a playing session's channel to a new theme,
// letting the channel crossfade autonomously. If the session isn't
// playing, it simply records the new theme id for the next Play.
func (m *Manager) UpdateTheme(id, themeID string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.update_theme", fmt.Errorf("session %s", id))
	}
	th := m.themes.Theme(themeID)
	if th == nil {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.update_theme", fmt.Errorf("theme %s", themeID))
	}
	s.ThemeID = themeID
	s.PresetID = ""
	s.lastCycleChange = time.Now()
	playing := s.IsPlaying
	channelID := s.ChannelID
	volume := s.Volume
	m.persistLocked()
	m.mu.Unlock()

	if !playing {
		return nil
	}
	ch := m.channels.Channel(channelID)
	if ch == nil {
		return sonoriumerr.Unavailable("session.update_theme", fmt.Errorf("session %s has no bound channel", id))
	}
	ms := mixer.New(th, true)
	ms.SetOutputGain(masterGainFor(volume))
	ch.SetTheme(ms)
	return nil
}

// UpdatePreset applies a preset in place, without recreating the bound
// ThemeStream: mixer.ThemeStream already fades each track's contribution
// in or out as TrackInstance.Enabled() changes, so applying the preset's
// settings to the live TrackInstances is sufficient — there is nothing
// further to "prepare" at this layer. If the session is playing, the
// bound ThemeStream is told first to give any track the preset newly
// enables a random start offset, matching what a full theme swap already
// does for every track.
func (m *Manager) UpdatePreset(id, presetID string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.update_preset", fmt.Errorf("session %s", id))
	}
	th := m.themes.Theme(s.ThemeID)
	playing := s.IsPlaying
	channelID := s.ChannelID
	m.mu.Unlock()
	if th == nil {
		return sonoriumerr.NotFound("session.update_preset", fmt.Errorf("theme %s", s.ThemeID))
	}

	if playing {
		if ch := m.channels.Channel(channelID); ch != nil {
			if cur := ch.Current(); cur != nil {
				cur.MarkRandomStartForNewStreams()
			}
		}
	}

	if err := th.ApplyPreset(presetID); err != nil {
		return sonoriumerr.Invalid("session.update_preset", err)
	}

	m.mu.Lock()
	s.PresetID = presetID
	m.persistLocked()
	m.mu.Unlock()
	return nil
}

// UpdateSpeakers replaces a session's speaker selection (or bound group),
// diffing against the previous resolution to start/stop only what
// changed.
func (m *Manager) UpdateSpeakers(id string, groupID string, sel SpeakerSelection) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.update_speakers", fmt.Errorf("session %s", id))
	}
	oldNetwork, oldLocal := m.resolvedSpeakers(s)

	s.SpeakerGroupID = groupID
	s.Selection = sel
	newNetwork, newLocal := m.resolvedSpeakers(s)
	playing := s.IsPlaying
	channelID := s.ChannelID
	volume := float64(s.Volume) / 100.0
	m.persistLocked()
	m.mu.Unlock()

	if !playing {
		return nil
	}

	added := diffSets(newNetwork, oldNetwork)
	removed := diffSets(oldNetwork, newNetwork)
	streamURL := m.streamURL(channelID)

	if oldLocal && !newLocal {
		m.stopLocal(id)
	} else if !oldLocal && newLocal {
		m.startLocal(id, streamURL, volume)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if len(removed) > 0 {
		if err := m.media.StopMulti(ctx, removed); err != nil {
			log.Printf("[session] %s: stop removed speakers: %v", id, err)
		}
	}
	if len(added) > 0 {
		if err := m.media.PlayMediaMulti(ctx, added, streamURL); err != nil {
			log.Printf("[session] %s: start added speakers: %v", id, err)
		}
		if err := m.media.SetVolumeMulti(ctx, added, volume); err != nil {
			log.Printf("[session] %s: set volume on added speakers: %v", id, err)
		}
	}
	return nil
}

// UpdateVolume sets the session's master gain and propagates the
// normalized volume to every resolved network speaker.
func (m *Manager) UpdateVolume(id string, volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return sonoriumerr.NotFound("session.update_volume", fmt.Errorf("session %s", id))
	}
	s.Volume = volume
	playing := s.IsPlaying
	channelID := s.ChannelID
	network, local := m.resolvedSpeakers(s)
	m.persistLocked()
	m.mu.Unlock()

	if !playing {
		return nil
	}

	if ch := m.channels.Channel(channelID); ch != nil {
		if cur := ch.Current(); cur != nil {
			cur.SetOutputGain(masterGainFor(volume))
		}
	}

	volumeFrac := float64(volume) / 100.0
	if local {
		m.mu.Lock()
		p := m.localByID[id]
		m.mu.Unlock()
		if p != nil {
			p.SetVolume(volumeFrac)
		}
	}
	if len(network) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.media.SetVolumeMulti(ctx, network, volumeFrac); err != nil {
			log.Printf("[session] %s: set volume: %v", id, err)
		}
	}
	return nil
}

// PlayingWithCycle returns a CycleManager-facing view of every playing
// session that has cycling enabled, satisfying cycle.SessionSource.
func (m *Manager) PlayingWithCycle() []cycle.CycleCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []cycle.CycleCandidate
	for _, s := range m.sessions {
		if !s.IsPlaying || s.Cycle == nil || !s.Cycle.Enabled {
			continue
		}
		themeIDs := s.Cycle.ThemeIDs
		if len(themeIDs) == 0 {
			themeIDs = m.themes.AllIDs()
		}
		out = append(out, cycle.CycleCandidate{
			SessionID:       s.ID,
			CurrentThemeID:  s.ThemeID,
			IntervalMinutes: s.Cycle.IntervalMinutes,
			Randomize:       s.Cycle.Randomize,
			ThemeIDs:        themeIDs,
			LastChange:      s.lastCycleChange,
		})
	}
	return out
}

// SaveGroup creates or replaces a named speaker group.
func (m *Manager) SaveGroup(g *SpeakerGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = g
	m.persistLocked()
}

// Groups returns every saved speaker group.
func (m *Manager) Groups() []*SpeakerGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*SpeakerGroup, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out
}

func (m *Manager) persistLocked() {
	if m.persistPath == "" {
		return
	}
	snapshot := struct {
		Sessions []*Session      `json:"sessions"`
		Groups   []*SpeakerGroup `json:"groups"`
	}{}
	for _, s := range m.sessions {
		snapshot.Sessions = append(snapshot.Sessions, s)
	}
	for _, g := range m.groups {
		snapshot.Groups = append(snapshot.Groups, g)
	}
	if err := atomicfile.WriteJSON(m.persistPath, snapshot); err != nil {
		log.Printf("[session] persist: %v", err)
	}
}
