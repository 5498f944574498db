package raycast

import (
	"math"
	"testing"

	"github.com/g3n/engine/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/holoray/holoray/internal/core/input"
	"github.com/holoray/holoray/internal/core/observability/log"
)

type fixedHead struct {
	pose input.Pose
}

func (f fixedHead) HeadPose() input.Pose { return f.pose }

type fixedGaze struct {
	ray input.Ray
}

func (f fixedGaze) GazeRay() (input.Ray, bool) { return f.ray, true }

func newTestResolver(t *testing.T) (*Resolver, *input.System, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.Wrap(zap.New(core), log.LevelDebug)
	sys := input.NewSystem(nil)
	return New(sys, logger), sys, logs
}

func yawQuat(angle float32) math32.Quaternion {
	var q math32.Quaternion
	q.SetFromAxisAngle(math32.NewVector3(0, 1, 0), angle)
	return q
}

func TestHeadGazeRayFollowsCamera(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	pose := input.Pose{
		Position: math32.Vector3{X: 1, Y: 2, Z: 3},
		Rotation: math32.Quaternion{W: 1},
	}
	sys.SetHeadProvider(fixedHead{pose: pose})

	ray := r.HeadGazeRay()
	assert.Equal(t, pose.Position, ray.Origin)
	assert.InDelta(t, 0, ray.Direction.X, 1e-5)
	assert.InDelta(t, 0, ray.Direction.Y, 1e-5)
	assert.InDelta(t, -1, ray.Direction.Z, 1e-5)
}

func TestHeadGazeRayAlwaysSucceeds(t *testing.T) {
	r, _, _ := newTestResolver(t)

	// No device ever reported a head pose: the static fallback answers.
	ray := r.HeadGazeRay()
	assert.Equal(t, math32.Vector3{}, ray.Origin)
	assert.InDelta(t, -1, ray.Direction.Z, 1e-5)
}

func TestEyeGazeRayWithoutProvider(t *testing.T) {
	r, _, _ := newTestResolver(t)

	ray, ok := r.EyeGazeRay()
	assert.False(t, ok)
	assert.Equal(t, input.Ray{}, ray)
}

func TestEyeGazeRayCopiesProviderData(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	want := input.NewRay(
		math32.Vector3{X: 0, Y: 1.6, Z: 0},
		math32.Vector3{X: 0.5, Y: 0, Z: -0.5},
	)
	sys.SetEyeGazeProvider(fixedGaze{ray: want})

	got, ok := r.EyeGazeRay()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestHandRayFromSpatialPointer(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	src := input.NewSource("session-1", input.KindHand, input.HandRight)
	pointerPose := input.Pose{
		Position: math32.Vector3{X: 0.1, Y: 1.2, Z: 0.3},
		Rotation: yawQuat(math.Pi / 2),
	}
	src.SetMapping(input.UsageSpatialPointer, pointerPose)
	sys.Attach(src)

	ray, ok := r.HandRay(input.HandRight)
	require.True(t, ok)
	assert.Equal(t, pointerPose.Position, ray.Origin)
	// -Z rotated 90 degrees about +Y points along -X.
	assert.InDelta(t, -1, ray.Direction.X, 1e-5)
	assert.InDelta(t, 0, ray.Direction.Y, 1e-5)
	assert.InDelta(t, 0, ray.Direction.Z, 1e-5)
}

func TestHandRayNoMatchingSource(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	src := input.NewSource("session-1", input.KindHand, input.HandLeft)
	src.SetMapping(input.UsageSpatialPointer, input.IdentityPose())
	sys.Attach(src)

	_, ok := r.HandRay(input.HandRight)
	assert.False(t, ok, "left hand must not answer for right")
}

func TestHandRayNoSpatialPointerMapping(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	src := input.NewSource("session-1", input.KindHand, input.HandRight)
	src.SetMapping(input.UsageSelect, input.IdentityPose())
	sys.Attach(src)

	_, ok := r.HandRay(input.HandRight)
	assert.False(t, ok)
}

func TestMotionControllerRay(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	src := input.NewSource("session-1", input.KindController, input.HandLeft)
	pointerPose := input.Pose{
		Position: math32.Vector3{X: -0.2, Y: 1.0, Z: 0.1},
		Rotation: math32.Quaternion{W: 1},
	}
	src.SetMapping(input.UsageSpatialPointer, pointerPose)
	sys.Attach(src)

	ray, ok := r.MotionControllerRay(input.HandLeft)
	require.True(t, ok)
	assert.Equal(t, pointerPose.Position, ray.Origin)

	_, ok = r.MotionControllerRay(input.HandRight)
	assert.False(t, ok)

	// A controller never answers a hand lookup.
	_, ok = r.HandRay(input.HandLeft)
	assert.False(t, ok)
}

func TestRayDispatch(t *testing.T) {
	r, sys, _ := newTestResolver(t)

	sys.SetHeadProvider(fixedHead{pose: input.Pose{
		Position: math32.Vector3{X: 0, Y: 1.7, Z: 0},
		Rotation: math32.Quaternion{W: 1},
	}})

	// Head and eyes ignore the handedness parameter.
	for _, hand := range []input.Handedness{input.HandNone, input.HandLeft, input.HandRight} {
		ray, ok := r.Ray(input.KindHead, hand)
		require.True(t, ok)
		assert.InDelta(t, 1.7, ray.Origin.Y, 1e-5)
	}

	_, ok := r.Ray(input.KindEyes, input.HandLeft)
	assert.False(t, ok, "no eye-gaze provider registered")

	_, ok = r.Ray(input.KindHand, input.HandRight)
	assert.False(t, ok)
}

func TestRayUnsupportedKindLogsWarning(t *testing.T) {
	r, _, logs := newTestResolver(t)

	ray, ok := r.Ray(input.KindVoice, input.HandNone)
	assert.False(t, ok)
	assert.Equal(t, input.Ray{}, ray)

	warned := logs.FilterLevelExact(zapcore.WarnLevel)
	require.Equal(t, 1, warned.Len())
	assert.Contains(t, warned.All()[0].Message, "not supported")
}
