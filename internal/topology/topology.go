// Package topology implements session.Topology: the externally supplied
// floor/area/speaker graph that SpeakerSelection resolves against. The
// graph itself comes from whatever asset-management system owns the
// building's speaker inventory; this package only knows how to load a
// static JSON snapshot of it, the way internal/theme loads a static
// snapshot of the audio library.
package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Speaker is one addressable playback endpoint within an Area.
type Speaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Area groups speakers within a Floor (e.g. "Kitchen", "Patio").
type Area struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Speakers []Speaker `json:"speakers"`
}

// Floor groups areas (e.g. "Ground Floor", "Upstairs").
type Floor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Areas []Area `json:"areas"`
}

// Static is a session.Topology backed by an in-memory graph loaded once
// from disk. It never changes itself; call Load again and swap the
// Manager's reference to pick up edits.
type Static struct {
	mu sync.RWMutex

	floorName   map[string]string
	areaName    map[string]string
	speakerName map[string]string
	floorSpeak  map[string][]string
	areaSpeak   map[string][]string
}

// Empty returns a Static with no floors, areas, or speakers — every
// lookup resolves to an empty result. Used when no topology file is
// configured, so SpeakerSelection still resolves (to nothing) instead of
// panicking on a nil Topology.
func Empty() *Static {
	return &Static{
		floorName:   map[string]string{},
		areaName:    map[string]string{},
		speakerName: map[string]string{},
		floorSpeak:  map[string][]string{},
		areaSpeak:   map[string][]string{},
	}
}

// Load reads a JSON array of Floor from path and builds the lookup
// indices SpeakerSelection.Resolve needs.
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: read %s: %w", path, err)
	}
	var floors []Floor
	if err := json.Unmarshal(data, &floors); err != nil {
		return nil, fmt.Errorf("topology: parse %s: %w", path, err)
	}
	return fromFloors(floors), nil
}

func fromFloors(floors []Floor) *Static {
	s := Empty()
	for _, f := range floors {
		s.floorName[f.ID] = f.Name
		for _, a := range f.Areas {
			s.areaName[a.ID] = a.Name
			s.floorSpeak[f.ID] = append(s.floorSpeak[f.ID], speakerIDs(a.Speakers)...)
			s.areaSpeak[a.ID] = speakerIDs(a.Speakers)
			for _, sp := range a.Speakers {
				s.speakerName[sp.ID] = sp.Name
			}
		}
	}
	return s
}

func speakerIDs(speakers []Speaker) []string {
	out := make([]string, len(speakers))
	for i, sp := range speakers {
		out[i] = sp.ID
	}
	return out
}

// SpeakersInFloor returns every speaker id under floorID, across all its areas.
func (s *Static) SpeakersInFloor(floorID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.floorSpeak[floorID]...)
}

// SpeakersInArea returns every speaker id directly under areaID.
func (s *Static) SpeakersInArea(areaID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.areaSpeak[areaID]...)
}

// FloorName returns floorID's display name, or floorID itself if unknown.
func (s *Static) FloorName(floorID string) string {
	return s.nameOr(s.floorName, floorID)
}

// AreaName returns areaID's display name, or areaID itself if unknown.
func (s *Static) AreaName(areaID string) string {
	return s.nameOr(s.areaName, areaID)
}

// SpeakerName returns speakerID's display name, or speakerID itself if unknown.
func (s *Static) SpeakerName(speakerID string) string {
	return s.nameOr(s.speakerName, speakerID)
}

func (s *Static) nameOr(m map[string]string, id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := m[id]; ok {
		return name
	}
	return id
}
