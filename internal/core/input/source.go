package input

import (
	"time"

	"github.com/google/uuid"
)

// Source is the record of one detected input source. Records are owned
// by the registry; readers get copies and never mutate shared state.
type Source struct {
	ID         string
	SessionID  string
	Kind       SourceKind
	Handedness Handedness
	Mappings   map[MappingUsage]Mapping
	LastSeen   time.Time
}

// NewSource creates a source record with a fresh ID.
func NewSource(sessionID string, kind SourceKind, hand Handedness) *Source {
	return &Source{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Kind:       kind,
		Handedness: hand,
		Mappings:   make(map[MappingUsage]Mapping),
		LastSeen:   time.Now(),
	}
}

// Mapping returns the interaction mapping for the given usage.
func (s *Source) Mapping(usage MappingUsage) (Mapping, bool) {
	m, ok := s.Mappings[usage]
	return m, ok
}

// SetMapping records the latest pose for one interaction channel.
func (s *Source) SetMapping(usage MappingUsage, pose Pose) {
	if s.Mappings == nil {
		s.Mappings = make(map[MappingUsage]Mapping)
	}
	s.Mappings[usage] = Mapping{Usage: usage, Pose: pose}
}

// clone returns a deep copy safe to hand to readers.
func (s *Source) clone() *Source {
	cp := *s
	cp.Mappings = make(map[MappingUsage]Mapping, len(s.Mappings))
	for u, m := range s.Mappings {
		cp.Mappings[u] = m
	}
	return &cp
}
