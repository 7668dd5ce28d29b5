package store

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Settings() != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", s.Settings())
	}
	if _, err := filepath.Abs(filepath.Join(dir, settingsFileName)); err != nil {
		t.Fatalf("path: %v", err)
	}
}

func TestUpdatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	next := s.Settings()
	next.DefaultVolume = 80
	if err := s.Update(next); err != nil {
		t.Fatalf("update: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Settings().DefaultVolume != 80 {
		t.Fatalf("expected persisted volume 80, got %d", reopened.Settings().DefaultVolume)
	}
}
