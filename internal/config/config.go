package config

import (
	"flag"
	"path/filepath"
	"runtime"
)

type Config struct {
	DataDir      string
	ThemesDir    string
	TopologyPath string
	Port         string
	ControlAddr  string
	TraceLog     string

	MaxChannels    int
	MaxSessions    int
	OutputGain     float64
	EnableLocalOut bool
	LocalOutDevice string
}

func Load() *Config {
	dataDir := flag.String("data", "data", "Directory for persistent sonorium state (sessions, groups, settings)")
	themesDir := flag.String("themes", "", "Directory containing theme packs (default: dataDir/../themes)")
	topologyPath := flag.String("topology", "", "Path to the JSON floor/area/speaker topology file (default: dataDir/topology.json, empty graph if absent)")
	port := flag.String("port", "8090", "HTTP server port")
	controlAddr := flag.String("control-addr", defaultControlAddress(), "Local control listener address (unix:/path/to.sock or npipe:////./pipe/sonorium-control)")
	traceLog := flag.String("trace-log", "", "Optional path to append a trace log in addition to stdout")

	maxChannels := flag.Int("max-channels", 6, "Number of pre-allocated broadcast channels")
	maxSessions := flag.Int("max-sessions", 20, "Maximum number of concurrent sessions")
	outputGain := flag.Float64("output-gain", 6.0, "Linear output gain (stored in Config; the mixer applies its own fixed 6.0 gain)")
	enableLocalOut := flag.Bool("local-output", false, "Local sound card output toggle (stored in Config; local playback starts only for sessions that select the \"local\" speaker)")
	localOutDevice := flag.String("local-device", "", "Local playback device name (stored in Config; local players use the system default device)")

	flag.Parse()

	finalThemesDir := *themesDir
	if finalThemesDir == "" {
		finalThemesDir = filepath.Join(filepath.Dir(*dataDir), "themes")
	}
	finalTopologyPath := *topologyPath
	if finalTopologyPath == "" {
		finalTopologyPath = filepath.Join(*dataDir, "topology.json")
	}

	return &Config{
		DataDir:        *dataDir,
		ThemesDir:      finalThemesDir,
		TopologyPath:   finalTopologyPath,
		Port:           *port,
		ControlAddr:    *controlAddr,
		TraceLog:       *traceLog,
		MaxChannels:    *maxChannels,
		MaxSessions:    *maxSessions,
		OutputGain:     *outputGain,
		EnableLocalOut: *enableLocalOut,
		LocalOutDevice: *localOutDevice,
	}
}

func defaultControlAddress() string {
	if runtime.GOOS == "windows" {
		return "npipe:\\\\.\\pipe\\sonorium-control"
	}
	return "unix:/tmp/sonorium-control.sock"
}
