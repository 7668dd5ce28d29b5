package theme

// TrackSettings is the six-field settings record carried both on a live
// TrackInstance and inside a Preset, matching metadata.json exactly.
type TrackSettings struct {
	Presence     float64 `json:"presence"`
	Muted        bool    `json:"muted"`
	Volume       float64 `json:"volume"`
	PlaybackMode string  `json:"playback_mode"`
	SeamlessLoop bool    `json:"seamless_loop"`
	Exclusive    bool    `json:"exclusive"`
}

// DefaultTrackSettings mirrors the defaults the theme scanner assigns a
// newly discovered audio file with no prior entry in metadata.json.
func DefaultTrackSettings() TrackSettings {
	return TrackSettings{
		Presence:     1.0,
		Muted:        false,
		Volume:       1.0,
		PlaybackMode: string(PlaybackAuto),
		SeamlessLoop: true,
		Exclusive:    false,
	}
}

type presetData struct {
	Name      string                   `json:"name"`
	IsDefault bool                     `json:"is_default"`
	Tracks    map[string]TrackSettings `json:"tracks"`
}

// metadataFile is the on-disk shape of metadata.json.
type metadataFile struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	Description        string                   `json:"description"`
	Icon               string                   `json:"icon"`
	Categories         []string                 `json:"categories"`
	IsFavorite         bool                     `json:"is_favorite"`
	ShortFileThreshold float64                  `json:"short_file_threshold"`
	Tracks             map[string]TrackSettings `json:"tracks"`
	Presets            map[string]presetData    `json:"presets"`
}

// Preset is a named snapshot of per-track settings inside a Theme.
type Preset struct {
	ID        string
	Name      string
	IsDefault bool
	Tracks    map[string]TrackSettings
}
