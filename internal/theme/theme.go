// Package theme implements Recording (C1) and TrackInstance (C2), plus the
// Theme/Preset aggregate and its on-disk metadata.json persistence (§6).
package theme

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sonorium/internal/atomicfile"
	"sonorium/internal/decode"
)

const defaultShortFileThresholdSeconds = 15.0

const metadataFileName = "metadata.json"

// Theme is a named collection of TrackInstances scanned from a directory,
// plus its persisted metadata. Track names are unique within a theme.
type Theme struct {
	ID                 string
	Dir                string
	Name               string
	Description        string
	Icon               string
	Categories         []string
	IsFavorite         bool
	ShortFileThreshold float64

	mu      sync.RWMutex
	tracks  map[string]*TrackInstance
	presets map[string]*Preset
}

// Scan loads (or initializes) a theme from a directory: every supported
// audio file becomes a TrackInstance, seeded from metadata.json if present
// or from DefaultTrackSettings otherwise. A missing metadata.json is not an
// error: a theme with at least one track gets a fresh id and its
// metadata.json is written right away.
func Scan(dir string) (*Theme, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan theme dir %s: %w", dir, err)
	}

	var meta metadataFile
	metaPath := filepath.Join(dir, metadataFileName)
	if err := atomicfile.ReadJSON(metaPath, &meta); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", metaPath, err)
	}

	newID := meta.ID == ""
	if newID {
		meta.ID = uuid.New().String()
	}
	if meta.Name == "" {
		meta.Name = filepath.Base(dir)
	}
	if meta.ShortFileThreshold <= 0 {
		meta.ShortFileThreshold = defaultShortFileThresholdSeconds
	}
	if meta.Tracks == nil {
		meta.Tracks = make(map[string]TrackSettings)
	}

	th := &Theme{
		ID:                 meta.ID,
		Dir:                dir,
		Name:               meta.Name,
		Description:        meta.Description,
		Icon:               meta.Icon,
		Categories:         meta.Categories,
		IsFavorite:         meta.IsFavorite,
		ShortFileThreshold: meta.ShortFileThreshold,
		tracks:             make(map[string]*TrackInstance),
		presets:            make(map[string]*Preset),
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !decode.IsSupported(e.Name()) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		settings, ok := meta.Tracks[name]
		if !ok {
			settings = DefaultTrackSettings()
		}
		rec := NewRecording(filepath.Join(dir, e.Name()))
		th.tracks[name] = NewTrackInstance(name, rec, settings)
	}

	for id, p := range meta.Presets {
		th.presets[id] = &Preset{ID: id, Name: p.Name, IsDefault: p.IsDefault, Tracks: p.Tracks}
	}

	if newID && len(th.tracks) > 0 {
		// Persist the freshly generated id so it survives later rescans.
		if err := th.Save(); err != nil {
			log.Printf("[theme] %s: persist new id: %v", dir, err)
		}
	}

	log.Printf("[theme] scanned %s: id=%s tracks=%d presets=%d", dir, th.ID, len(th.tracks), len(th.presets))
	return th, nil
}

// ScanDir scans every immediate subdirectory of root as a theme, skipping
// entries that contain no supported audio file.
func ScanDir(root string) ([]*Theme, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan themes root %s: %w", root, err)
	}

	var themes []*Theme
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		th, err := Scan(dir)
		if err != nil {
			log.Printf("[theme] skipping %s: %v", dir, err)
			continue
		}
		if len(th.TrackNames()) == 0 {
			continue
		}
		themes = append(themes, th)
	}
	return themes, nil
}

// Track returns the named track instance, or nil if it does not exist.
func (th *Theme) Track(name string) *TrackInstance {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.tracks[name]
}

// Tracks returns a stable-ordered snapshot of every track instance.
func (th *Theme) Tracks() []*TrackInstance {
	th.mu.RLock()
	defer th.mu.RUnlock()
	out := make([]*TrackInstance, 0, len(th.tracks))
	for _, t := range th.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TrackNames returns the sorted set of track names in the theme.
func (th *Theme) TrackNames() []string {
	th.mu.RLock()
	defer th.mu.RUnlock()
	names := make([]string, 0, len(th.tracks))
	for n := range th.tracks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset returns the named preset, or nil.
func (th *Theme) Preset(id string) *Preset {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.presets[id]
}

// Presets returns every preset in the theme.
func (th *Theme) Presets() []*Preset {
	th.mu.RLock()
	defer th.mu.RUnlock()
	out := make([]*Preset, 0, len(th.presets))
	for _, p := range th.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ApplyPreset overwrites the settings of every track the preset names;
// tracks it does not name are left untouched. Idempotent: applying the
// same preset twice in a row produces the same track settings.
func (th *Theme) ApplyPreset(presetID string) error {
	th.mu.RLock()
	preset, ok := th.presets[presetID]
	th.mu.RUnlock()
	if !ok {
		return fmt.Errorf("theme %s: unknown preset %s", th.ID, presetID)
	}

	for name, settings := range preset.Tracks {
		if t := th.Track(name); t != nil {
			t.Apply(settings)
		}
	}
	return nil
}

// SetTrackField mutates a single field of a single track, the operation
// the control surface's set_track_field exposes.
func (th *Theme) SetTrackField(trackName, field string, value any) error {
	t := th.Track(trackName)
	if t == nil {
		return fmt.Errorf("theme %s: unknown track %s", th.ID, trackName)
	}

	switch field {
	case "volume":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("field %s expects float64", field)
		}
		t.SetVolume(v)
	case "presence":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("field %s expects float64", field)
		}
		t.SetPresence(v)
	case "muted":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %s expects bool", field)
		}
		t.SetEnabled(!v)
	case "enabled":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %s expects bool", field)
		}
		t.SetEnabled(v)
	default:
		s := t.Settings()
		switch field {
		case "playback_mode":
			v, _ := value.(string)
			s.PlaybackMode = v
		case "seamless_loop":
			v, _ := value.(bool)
			s.SeamlessLoop = v
		case "exclusive":
			v, _ := value.(bool)
			s.Exclusive = v
		default:
			return fmt.Errorf("unknown track field %s", field)
		}
		t.Apply(s)
	}
	return nil
}

// Save writes metadata.json atomically, capturing every track's live
// settings so manual edits survive a restart.
func (th *Theme) Save() error {
	th.mu.RLock()
	meta := metadataFile{
		ID:                 th.ID,
		Name:               th.Name,
		Description:        th.Description,
		Icon:               th.Icon,
		Categories:         th.Categories,
		IsFavorite:         th.IsFavorite,
		ShortFileThreshold: th.ShortFileThreshold,
		Tracks:             make(map[string]TrackSettings, len(th.tracks)),
		Presets:            make(map[string]presetData, len(th.presets)),
	}
	for name, t := range th.tracks {
		meta.Tracks[name] = t.Settings()
	}
	for id, p := range th.presets {
		meta.Presets[id] = presetData{Name: p.Name, IsDefault: p.IsDefault, Tracks: p.Tracks}
	}
	th.mu.RUnlock()

	return atomicfile.WriteJSON(filepath.Join(th.Dir, metadataFileName), meta)
}
