// Package control implements the operation set §6 names as the core's
// control surface: list_themes, get_theme, refresh_themes,
// set_track_field, apply_preset, session CRUD, play/pause/stop,
// set_volume, set_master_volume, and channel_status. internal/ipc's
// local listener is a thin transport over this implementation;
// internal/httpapi's REST handlers do not use it and call the session,
// theme, and channel managers directly.
package control

import (
	"encoding/json"
	"fmt"

	"sonorium/internal/channel"
	"sonorium/internal/ipc"
	"sonorium/internal/session"
	"sonorium/internal/sonoriumerr"
	"sonorium/internal/theme"
)

// Surface implements ipc.Handler.
type Surface struct {
	Themes   *theme.Registry
	Sessions *session.Manager
	Channels *channel.Manager

	// masterVolume is the last value set_master_volume stored. That op sets
	// every bound channel's output gain to 6.0 × masterVolume, replacing
	// the gain the session's own volume gave it; later session volume
	// changes and new plays set the gain from the session volume alone.
	masterVolume float64
}

// NewSurface builds a control surface at unity master volume.
func NewSurface(themes *theme.Registry, sessions *session.Manager, channels *channel.Manager) *Surface {
	return &Surface{Themes: themes, Sessions: sessions, Channels: channels, masterVolume: 1.0}
}

// Handle dispatches one ipc.Request by operation name.
func (s *Surface) Handle(req ipc.Request) ipc.Response {
	switch req.Op {
	case "list_themes":
		return s.listThemes()
	case "get_theme":
		return s.getTheme(req.Params)
	case "refresh_themes":
		return s.refreshThemes()
	case "set_track_field":
		return s.setTrackField(req.Params)
	case "apply_preset":
		return s.applyPreset(req.Params)
	case "create_session":
		return s.createSession(req.Params)
	case "play":
		return s.withSessionID(req.Params, s.Sessions.Play)
	case "pause":
		return s.withSessionID(req.Params, s.Sessions.Pause)
	case "stop":
		return s.withSessionID(req.Params, s.Sessions.Stop)
	case "set_volume":
		return s.setVolume(req.Params)
	case "set_master_volume":
		return s.setMasterVolume(req.Params)
	case "channel_status":
		return s.channelStatus()
	default:
		return errResponse(fmt.Errorf("unknown op %q", req.Op))
	}
}

func (s *Surface) listThemes() ipc.Response {
	themes := s.Themes.All()
	out := make([]map[string]any, len(themes))
	for i, th := range themes {
		out[i] = map[string]any{"id": th.ID, "name": th.Name}
	}
	return okResponse(out)
}

func (s *Surface) getTheme(params json.RawMessage) ipc.Response {
	var req struct {
		ThemeID string `json:"theme_id"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return errResponse(err)
	}
	th := s.Themes.Theme(req.ThemeID)
	if th == nil {
		return errResponse(sonoriumerr.NotFound("get_theme", fmt.Errorf("theme %s", req.ThemeID)))
	}
	return okResponse(map[string]any{
		"id": th.ID, "name": th.Name, "tracks": th.TrackNames(),
	})
}

func (s *Surface) refreshThemes() ipc.Response {
	if err := s.Themes.Refresh(); err != nil {
		return errResponse(err)
	}
	return okResponse(map[string]any{"count": len(s.Themes.All())})
}

func (s *Surface) setTrackField(params json.RawMessage) ipc.Response {
	var req struct {
		ThemeID string `json:"theme"`
		Track   string `json:"track"`
		Field   string `json:"field"`
		Value   any    `json:"value"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return errResponse(err)
	}
	th := s.Themes.Theme(req.ThemeID)
	if th == nil {
		return errResponse(sonoriumerr.NotFound("set_track_field", fmt.Errorf("theme %s", req.ThemeID)))
	}
	if err := th.SetTrackField(req.Track, req.Field, req.Value); err != nil {
		return errResponse(sonoriumerr.Invalid("set_track_field", err))
	}
	if err := th.Save(); err != nil {
		return errResponse(err)
	}
	return okResponse(nil)
}

func (s *Surface) applyPreset(params json.RawMessage) ipc.Response {
	var req struct {
		ThemeID  string `json:"theme"`
		PresetID string `json:"preset"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return errResponse(err)
	}
	th := s.Themes.Theme(req.ThemeID)
	if th == nil {
		return errResponse(sonoriumerr.NotFound("apply_preset", fmt.Errorf("theme %s", req.ThemeID)))
	}
	if err := th.ApplyPreset(req.PresetID); err != nil {
		return errResponse(sonoriumerr.Invalid("apply_preset", err))
	}
	if err := th.Save(); err != nil {
		return errResponse(err)
	}
	return okResponse(nil)
}

func (s *Surface) createSession(params json.RawMessage) ipc.Response {
	var opts session.CreateOptions
	if err := json.Unmarshal(params, &opts); err != nil {
		return errResponse(err)
	}
	sess, err := s.Sessions.Create(opts)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(sess)
}

func (s *Surface) withSessionID(params json.RawMessage, fn func(string) error) ipc.Response {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return errResponse(err)
	}
	if err := fn(req.SessionID); err != nil {
		return errResponse(err)
	}
	return okResponse(nil)
}

func (s *Surface) setVolume(params json.RawMessage) ipc.Response {
	var req struct {
		SessionID string `json:"session_id"`
		Volume    int    `json:"volume"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return errResponse(err)
	}
	if err := s.Sessions.UpdateVolume(req.SessionID, req.Volume); err != nil {
		return errResponse(err)
	}
	return okResponse(nil)
}

func (s *Surface) setMasterVolume(params json.RawMessage) ipc.Response {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return errResponse(err)
	}
	if req.Volume < 0 {
		req.Volume = 0
	}
	if req.Volume > 1 {
		req.Volume = 1
	}
	s.masterVolume = req.Volume
	for _, ch := range s.Channels.All() {
		if cur := ch.Current(); cur != nil {
			cur.SetOutputGain(6.0 * req.Volume)
		}
	}
	return okResponse(nil)
}

func (s *Surface) channelStatus() ipc.Response {
	chans := s.Channels.All()
	out := make([]map[string]any, len(chans))
	for i, ch := range chans {
		out[i] = map[string]any{
			"id": ch.ID, "state": string(ch.State()),
			"client_count": ch.ClientCount(), "theme_version": ch.ThemeVersion(),
		}
	}
	return okResponse(out)
}

func okResponse(v any) ipc.Response {
	if v == nil {
		return ipc.Response{OK: true}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errResponse(err)
	}
	return ipc.Response{OK: true, Result: b}
}

func errResponse(err error) ipc.Response {
	return ipc.Response{OK: false, Error: err.Error()}
}
