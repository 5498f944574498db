package input

import (
	"sync"
	"time"

	"github.com/holoray/holoray/internal/core/events/bus"
)

// EyeGazeProvider supplies the current eye-gaze ray. A provider may be
// registered and later withdrawn; absence is an expected state.
type EyeGazeProvider interface {
	// GazeRay returns the latest gaze ray. ok is false when the provider
	// has no data yet.
	GazeRay() (Ray, bool)
}

// HeadProvider is the active-camera accessor: it always answers with the
// current head pose. A zero pose (origin, identity rotation) is a valid
// answer.
type HeadProvider interface {
	HeadPose() Pose
}

// staticHead is the fallback head provider used before any device
// reports a head pose.
type staticHead struct{}

func (staticHead) HeadPose() Pose { return IdentityPose() }

// System is the input-system facade: the source registry plus the head
// and eye-gaze providers, with lifecycle events published on the bus.
type System struct {
	registry *Registry
	events   bus.EventBus

	mu   sync.RWMutex
	head HeadProvider
	eyes EyeGazeProvider
}

// NewSystem creates a System around a fresh registry. A nil events bus
// disables event publication.
func NewSystem(events bus.EventBus) *System {
	return &System{
		registry: NewRegistry(defaultShardCount),
		events:   events,
		head:     staticHead{},
	}
}

// Registry exposes the source table for read-side consumers.
func (s *System) Registry() *Registry { return s.registry }

// SetHeadProvider replaces the active-camera accessor. A nil provider
// restores the static fallback.
func (s *System) SetHeadProvider(p HeadProvider) {
	s.mu.Lock()
	if p == nil {
		s.head = staticHead{}
	} else {
		s.head = p
	}
	s.mu.Unlock()
}

// HeadPose returns the current head pose. Always succeeds.
func (s *System) HeadPose() Pose {
	s.mu.RLock()
	p := s.head
	s.mu.RUnlock()
	return p.HeadPose()
}

// SetEyeGazeProvider registers or withdraws (nil) the eye-gaze provider.
func (s *System) SetEyeGazeProvider(p EyeGazeProvider) {
	s.mu.Lock()
	s.eyes = p
	s.mu.Unlock()
}

// EyeGaze returns the current eye-gaze ray; false when no provider is
// registered or the provider has no data. Data freshness is not checked.
func (s *System) EyeGaze() (Ray, bool) {
	s.mu.RLock()
	p := s.eyes
	s.mu.RUnlock()
	if p == nil {
		return Ray{}, false
	}
	return p.GazeRay()
}

// FindSource scans for an attached source matching kind and handedness.
func (s *System) FindSource(kind SourceKind, hand Handedness) (*Source, bool) {
	return s.registry.FindByKind(kind, hand)
}

// Attach registers a source and publishes source.attached.
func (s *System) Attach(src *Source) {
	s.registry.Attach(src)
	s.publish(bus.EventSourceAttached, src.ID, src)
}

// Detach removes a source and publishes source.detached.
func (s *System) Detach(id string) bool {
	src, ok := s.registry.Detach(id)
	if ok {
		s.publish(bus.EventSourceDetached, id, src)
	}
	return ok
}

// UpdateMapping refreshes one interaction mapping on an attached source
// and publishes source.updated.
func (s *System) UpdateMapping(id string, usage MappingUsage, pose Pose) bool {
	ok := s.registry.SetMapping(id, usage, pose)
	if ok {
		s.publish(bus.EventSourceUpdated, id, usage)
	}
	return ok
}

// DetachSession removes every source a session attached, publishing
// source.detached for each.
func (s *System) DetachSession(sessionID string) []*Source {
	removed := s.registry.DetachSession(sessionID)
	for _, src := range removed {
		s.publish(bus.EventSourceDetached, src.ID, src)
	}
	return removed
}

// SweepStale detaches sources not refreshed within ttl, publishing
// source.detached for each.
func (s *System) SweepStale(ttl time.Duration) []*Source {
	removed := s.registry.SweepStale(ttl)
	for _, src := range removed {
		s.publish(bus.EventSourceDetached, src.ID, src)
	}
	return removed
}

func (s *System) publish(typ, src string, data any) {
	if s.events == nil {
		return
	}
	// Lifecycle handlers are best-effort; errors are the subscriber's
	// problem, not the device's.
	_ = s.events.Publish(bus.NewEvent(typ, src, data))
}
