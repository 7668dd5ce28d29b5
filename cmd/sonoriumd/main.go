package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sonorium/internal/channel"
	"sonorium/internal/config"
	"sonorium/internal/control"
	"sonorium/internal/cycle"
	"sonorium/internal/httpapi"
	"sonorium/internal/ipc"
	"sonorium/internal/session"
	"sonorium/internal/speaker"
	"sonorium/internal/store"
	"sonorium/internal/theme"
	"sonorium/internal/topology"
)

func main() {
	cfg := config.Load()

	logFile := setupLogging(cfg.TraceLog)
	if logFile != nil {
		defer logFile.Close()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC: %v", r)
			panic(r)
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal("failed to create data directory:", err)
	}
	if err := os.MkdirAll(cfg.ThemesDir, 0755); err != nil {
		log.Fatal("failed to create themes directory:", err)
	}

	settingsStore, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatal("failed to open settings store:", err)
	}
	settings := settingsStore.Settings()

	themes := theme.NewRegistry(cfg.ThemesDir)
	if err := themes.Refresh(); err != nil {
		log.Printf("initial theme scan: %v", err)
	}
	log.Printf("loaded %d theme(s) from %s", len(themes.All()), cfg.ThemesDir)

	topo, err := topology.Load(cfg.TopologyPath)
	if err != nil {
		log.Printf("no topology loaded from %s (%v); speaker selections will resolve empty until one is provided", cfg.TopologyPath, err)
		topo = topology.Empty()
	}

	channels := channel.NewManager(cfg.MaxChannels)
	defer channels.Shutdown()

	maxSessions := cfg.MaxSessions
	if settings.MaxSessions > 0 {
		maxSessions = settings.MaxSessions
	}

	sessions := session.NewManager(session.Options{
		Channels:      channels,
		Themes:        themes,
		Topology:      topo,
		Media:         speaker.NoopMediaControl{},
		MaxSessions:   maxSessions,
		StreamBaseURL: fmt.Sprintf("http://localhost:%s", cfg.Port),
		PersistPath:   filepath.Join(cfg.DataDir, "sessions.json"),
	})

	cycleMgr := cycle.New(sessions)
	cycleMgr.Start()
	defer cycleMgr.Stop()

	surface := control.NewSurface(themes, sessions, channels)

	ipcServer := ipc.NewServer(controlListenAddr(cfg.ControlAddr), surface)
	go func() {
		if err := ipcServer.Start(); err != nil {
			log.Printf("[ipc] server stopped: %v", err)
		}
	}()
	defer ipcServer.Stop()

	httpServer := httpapi.NewServer(cfg.Port, channels, sessions, themes)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("shutting down")
		sessions.StopAll()
		cycleMgr.Stop()
		ipcServer.Stop()
		channels.Shutdown()
		os.Exit(0)
	}()

	log.Printf("sonorium listening on :%s (control surface at %s)", cfg.Port, cfg.ControlAddr)
	if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatal("http server:", err)
	}
}

// controlListenAddr strips the scheme prefix (unix:/npipe:) config.Load
// attaches for display purposes, leaving the bare path/pipe name
// internal/ipc's platform listener expects.
func controlListenAddr(addr string) string {
	for _, prefix := range []string{"unix:", "npipe:"} {
		if strings.HasPrefix(addr, prefix) {
			return strings.TrimPrefix(addr, prefix)
		}
	}
	return addr
}

func setupLogging(path string) *os.File {
	if path == "" {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open trace log %s: %v\n", path, err)
		return nil
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	return file
}
