package input

import "github.com/g3n/engine/math32"

// forward is the reference forward vector rays are derived from,
// -Z in the right-handed GL convention math32 uses.
var forward = math32.Vector3{X: 0, Y: 0, Z: -1}

// Pose is a position plus orientation reported by a device.
type Pose struct {
	Position math32.Vector3
	Rotation math32.Quaternion
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: math32.Quaternion{W: 1}}
}

// Forward returns the pose's rotation applied to the reference forward
// vector, normalized.
func (p Pose) Forward() math32.Vector3 {
	dir := forward
	dir.ApplyQuaternion(&p.Rotation)
	dir.Normalize()
	return dir
}

// Ray is a half-line used for pointing and targeting: an origin point
// and a unit direction.
type Ray struct {
	Origin    math32.Vector3
	Direction math32.Vector3
}

// NewRay builds a Ray, normalizing the direction. A zero direction is
// left as-is; callers treat such rays as unavailable.
func NewRay(origin, direction math32.Vector3) Ray {
	if direction.LengthSq() > 0 {
		direction.Normalize()
	}
	return Ray{Origin: origin, Direction: direction}
}

// RayFromPose builds the pointing ray of a pose: origin at the pose
// position, direction along its forward vector.
func RayFromPose(p Pose) Ray {
	return Ray{Origin: p.Position, Direction: p.Forward()}
}

// Mapping is one named interaction channel on a source, carrying the
// channel's last reported pose.
type Mapping struct {
	Usage MappingUsage
	Pose  Pose
}
