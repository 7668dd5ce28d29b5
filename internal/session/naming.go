package session

import "fmt"

// SpeakerGroup is a named, reusable SpeakerSelection a session can bind
// to instead of an ad-hoc selection — present in the original system's
// state but left implicit in the distilled selection model.
type SpeakerGroup struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Selection SpeakerSelection `json:"selection"`
}

// GenerateName implements the auto-naming priority table: saved group >
// single floor > single area > multiple areas > single speaker > a
// generic speaker-count fallback.
func GenerateName(sel SpeakerSelection, group *SpeakerGroup, topo Topology) string {
	if group != nil {
		return group.Name
	}

	if len(sel.IncludeFloors) == 1 && len(sel.IncludeAreas) == 0 && len(sel.IncludeSpeakers) == 0 {
		return topo.FloorName(sel.IncludeFloors[0])
	}

	if len(sel.IncludeAreas) == 1 && len(sel.IncludeFloors) == 0 && len(sel.IncludeSpeakers) == 0 {
		return topo.AreaName(sel.IncludeAreas[0])
	}

	if len(sel.IncludeAreas) >= 2 && len(sel.IncludeFloors) == 0 && len(sel.IncludeSpeakers) == 0 {
		names := make([]string, len(sel.IncludeAreas))
		for i, a := range sel.IncludeAreas {
			names[i] = topo.AreaName(a)
		}
		switch len(names) {
		case 2:
			return fmt.Sprintf("%s & %s", names[0], names[1])
		default:
			return fmt.Sprintf("%s + %d more", names[0], len(names)-1)
		}
	}

	if len(sel.IncludeSpeakers) == 1 && len(sel.IncludeFloors) == 0 && len(sel.IncludeAreas) == 0 {
		return topo.SpeakerName(sel.IncludeSpeakers[0])
	}

	resolved := sel.Resolve(topo)
	return fmt.Sprintf("%d speakers", len(resolved))
}
