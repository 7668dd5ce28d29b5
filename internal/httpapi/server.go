// Package httpapi exposes Sonorium over HTTP: the per-channel MP3
// streams network speakers and browsers consume, a legacy one-off
// per-theme stream, a JSON control surface for session/theme CRUD, and a
// websocket broadcasting channel status, grounded on the teacher's
// net/http + gorilla/websocket server.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sonorium/internal/channel"
	"sonorium/internal/mixer"
	"sonorium/internal/mp3enc"
	"sonorium/internal/session"
	"sonorium/internal/sonoriumerr"
	"sonorium/internal/theme"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the channel pool, session manager, and theme registry to
// HTTP handlers.
type Server struct {
	Port     string
	Channels *channel.Manager
	Sessions *session.Manager
	Themes   *theme.Registry

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewServer builds a Server. Call Start to begin listening.
func NewServer(port string, channels *channel.Manager, sessions *session.Manager, themes *theme.Registry) *Server {
	return &Server{Port: port, Channels: channels, Sessions: sessions, Themes: themes, clients: make(map[*websocket.Conn]bool)}
}

// Start registers every route and blocks serving HTTP.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/sessions", s.handleSessionsCollection)
	mux.HandleFunc("/api/sessions/", s.handleSessionItem)
	mux.HandleFunc("/api/themes", s.handleThemesCollection)
	mux.HandleFunc("/api/channels", s.handleChannelsStatus)

	go s.broadcastChannelStatusLoop()

	log.Printf("[httpapi] listening on :%s", s.Port)
	return http.ListenAndServe(":"+s.Port, mux)
}

// handleStream dispatches GET /stream/channel{n} to the channel stream
// and GET /stream/{theme_id} to the legacy one-off theme stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/stream/")
	if strings.HasPrefix(rest, "channel") {
		s.handleChannelStream(w, r, strings.TrimPrefix(rest, "channel"))
		return
	}
	s.handleLegacyThemeStream(w, r, rest)
}

// handleChannelStream serves GET /stream/channel{n}: an infinite MP3 body
// fed by the channel's ring buffer.
func (s *Server) handleChannelStream(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ch := s.Channels.Channel(id)
	if ch == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	client := channel.NewClient(ch, w)
	stop := r.Context().Done()
	if err := client.Run(stop); err != nil {
		log.Printf("[httpapi] channel %d client: %v", id, err)
	}
}

// handleLegacyThemeStream serves GET /stream/{theme_id}: a one-off
// ThemeStream not bound to any channel, kept only for clients written
// against the pre-channel streaming model.
func (s *Server) handleLegacyThemeStream(w http.ResponseWriter, r *http.Request, themeID string) {
	if themeID == "" {
		http.NotFound(w, r)
		return
	}
	th := s.Themes.Theme(themeID)
	if th == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ms := mixer.New(th, false)
	enc := mp3enc.New(w)
	defer enc.Close()

	stop := r.Context().Done()
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := enc.WriteChunk(ms.NextChunk()); err != nil {
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[httpapi] ws upgrade: %v", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type channelStatus struct {
	ID           int    `json:"id"`
	State        string `json:"state"`
	ClientCount  int    `json:"client_count"`
	ThemeVersion uint64 `json:"theme_version"`
}

func (s *Server) snapshotChannels() []channelStatus {
	chans := s.Channels.All()
	out := make([]channelStatus, len(chans))
	for i, ch := range chans {
		out[i] = channelStatus{ID: ch.ID, State: string(ch.State()), ClientCount: ch.ClientCount(), ThemeVersion: ch.ThemeVersion()}
	}
	return out
}

func (s *Server) broadcastChannelStatusLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		if len(s.clients) == 0 {
			s.mu.Unlock()
			continue
		}
		targets := make([]*websocket.Conn, 0, len(s.clients))
		for c := range s.clients {
			targets = append(targets, c)
		}
		s.mu.Unlock()

		payload := struct {
			Type     string          `json:"type"`
			Channels []channelStatus `json:"channels"`
		}{Type: "channel_status", Channels: s.snapshotChannels()}

		for _, c := range targets {
			if err := c.WriteJSON(payload); err != nil {
				s.mu.Lock()
				delete(s.clients, c)
				s.mu.Unlock()
				c.Close()
			}
		}
	}
}

func (s *Server) handleChannelsStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotChannels())
}

func (s *Server) handleThemesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Themes.Refresh(); err != nil {
		log.Printf("[httpapi] theme refresh: %v", err)
	}
	themes := s.Themes.All()
	out := make([]map[string]any, len(themes))
	for i, th := range themes {
		out[i] = map[string]any{"id": th.ID, "name": th.Name, "tracks": th.TrackNames()}
	}
	writeJSON(w, http.StatusOK, out)
}

type createSessionRequest struct {
	ThemeID        string                  `json:"theme_id"`
	PresetID       string                  `json:"preset_id"`
	SpeakerGroupID string                  `json:"speaker_group_id"`
	Selection      session.SpeakerSelection `json:"selection"`
	CustomName     string                  `json:"custom_name"`
	InitialVolume  int                     `json:"initial_volume"`
}

func (s *Server) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Sessions.List())
	case http.MethodPost:
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sess, err := s.Sessions.Create(session.CreateOptions{
			ThemeID: req.ThemeID, PresetID: req.PresetID, SpeakerGroupID: req.SpeakerGroupID,
			Selection: req.Selection, CustomName: req.CustomName, InitialVolume: req.InitialVolume,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		sess, err := s.Sessions.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case action == "play" && r.Method == http.MethodPost:
		s.respondEmpty(w, s.Sessions.Play(id))
	case action == "pause" && r.Method == http.MethodPost:
		s.respondEmpty(w, s.Sessions.Pause(id))
	case action == "stop" && r.Method == http.MethodPost:
		s.respondEmpty(w, s.Sessions.Stop(id))
	case action == "volume" && r.Method == http.MethodPost:
		var body struct {
			Volume int `json:"volume"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.respondEmpty(w, s.Sessions.UpdateVolume(id, body.Volume))
	case action == "theme" && r.Method == http.MethodPost:
		var body struct {
			ThemeID string `json:"theme_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.respondEmpty(w, s.Sessions.UpdateTheme(id, body.ThemeID))
	case action == "preset" && r.Method == http.MethodPost:
		var body struct {
			PresetID string `json:"preset_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.respondEmpty(w, s.Sessions.UpdatePreset(id, body.PresetID))
	case action == "speakers" && r.Method == http.MethodPost:
		var body struct {
			SpeakerGroupID string                   `json:"speaker_group_id"`
			Selection      session.SpeakerSelection `json:"selection"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.respondEmpty(w, s.Sessions.UpdateSpeakers(id, body.SpeakerGroupID, body.Selection))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) respondEmpty(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var se *sonoriumerr.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case sonoriumerr.KindNotFound:
			status = http.StatusNotFound
		case sonoriumerr.KindInvalid:
			status = http.StatusBadRequest
		case sonoriumerr.KindConflict:
			status = http.StatusConflict
		case sonoriumerr.KindUnavailable:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
