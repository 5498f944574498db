// Package raycast resolves pointing rays from the currently detected
// input sources: head orientation, eye gaze, hand pointers and motion
// controllers.
package raycast

import (
	"github.com/holoray/holoray/internal/core/input"
	"github.com/holoray/holoray/internal/core/observability/log"
)

// InputSystem is the slice of the input system the resolver reads.
// *input.System satisfies it.
type InputSystem interface {
	HeadPose() input.Pose
	EyeGaze() (input.Ray, bool)
	FindSource(kind input.SourceKind, hand input.Handedness) (*input.Source, bool)
}

// Resolver maps (source kind, handedness) to a pointing ray. It holds no
// state of its own; every call re-queries the input system. All lookup
// failures are reported via the bool return, never as errors.
type Resolver struct {
	sys    InputSystem
	logger log.Log
}

// New creates a Resolver over the given input system.
func New(sys InputSystem, logger log.Log) *Resolver {
	return &Resolver{
		sys:    sys,
		logger: logger.With(log.String("component", "raycast")),
	}
}

// HeadGazeRay returns the ray from the head position along the head's
// forward vector. Always succeeds.
func (r *Resolver) HeadGazeRay() input.Ray {
	return input.RayFromPose(r.sys.HeadPose())
}

// EyeGazeRay returns the eye-gaze ray. ok is false when no eye-gaze
// provider is registered; the output is then the zero Ray. Provider data
// is passed through without freshness checks.
func (r *Resolver) EyeGazeRay() (input.Ray, bool) {
	return r.sys.EyeGaze()
}

// HandRay returns the pointing ray of the hand with the given
// handedness. ok is false when no matching hand is detected or it has no
// spatial-pointer mapping.
func (r *Resolver) HandRay(hand input.Handedness) (input.Ray, bool) {
	return r.pointerRay(input.KindHand, hand)
}

// MotionControllerRay returns the pointing ray of the motion controller
// with the given handedness. ok is false when no matching controller is
// detected or it has no spatial-pointer mapping.
func (r *Resolver) MotionControllerRay(hand input.Handedness) (input.Ray, bool) {
	return r.pointerRay(input.KindController, hand)
}

// Ray dispatches by source kind. Head and eyes ignore the handedness
// parameter. Unsupported kinds log a warning and report failure.
func (r *Resolver) Ray(kind input.SourceKind, hand input.Handedness) (input.Ray, bool) {
	switch kind {
	case input.KindHead:
		return r.HeadGazeRay(), true
	case input.KindEyes:
		return r.EyeGazeRay()
	case input.KindHand:
		return r.HandRay(hand)
	case input.KindController:
		return r.MotionControllerRay(hand)
	default:
		r.logger.Warn("ray resolution not supported for source kind",
			log.String("kind", kind.String()),
			log.String("handedness", hand.String()))
		return input.Ray{}, false
	}
}

// pointerRay scans for a source of the given kind and handedness, then
// for its spatial-pointer mapping. First match wins.
func (r *Resolver) pointerRay(kind input.SourceKind, hand input.Handedness) (input.Ray, bool) {
	src, ok := r.sys.FindSource(kind, hand)
	if !ok {
		return input.Ray{}, false
	}
	m, ok := src.Mapping(input.UsageSpatialPointer)
	if !ok {
		return input.Ray{}, false
	}
	return input.RayFromPose(m.Pose), true
}
