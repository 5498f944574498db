package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holoray/holoray/internal/core/input"
)

func TestDecodeAttachFrame(t *testing.T) {
	data := []byte(`{
		"type": "attach",
		"source": "ctl-1",
		"kind": "controller",
		"handedness": "right",
		"mappings": [
			{"usage": "spatial_pointer", "pose": {"position": [0.1, 1.2, 0.3], "rotation": [0, 0, 0, 1]}}
		]
	}`)

	f, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FrameAttach, f.Type)
	assert.Equal(t, "ctl-1", f.Source)
	assert.Equal(t, input.KindController, f.Kind)
	assert.Equal(t, input.HandRight, f.Handedness)
	require.Len(t, f.Mappings, 1)
	assert.Equal(t, "spatial_pointer", f.Mappings[0].Usage)
	assert.Equal(t, float32(1.2), f.Mappings[0].Pose.Position[1])
}

func TestDecodeRejectsUntypedFrame(t *testing.T) {
	_, err := Decode([]byte(`{"source": "ctl-1"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownEnums(t *testing.T) {
	_, err := Decode([]byte(`{"type": "attach", "kind": "telepathy"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type": "attach", "kind": "hand", "handedness": "middle"}`))
	assert.Error(t, err)
}

func TestPoseRoundTrip(t *testing.T) {
	wire := Pose{
		Position: [3]float32{1, 2, 3},
		Rotation: [4]float32{0, 0.7071, 0, 0.7071},
	}
	back := PoseFromInput(wire.ToInput())
	assert.Equal(t, wire, back)
}

func TestEncodeDecodeHeadFrame(t *testing.T) {
	f := &Frame{
		Type: FrameHead,
		Pose: &Pose{Position: [3]float32{0, 1.7, 0}, Rotation: [4]float32{0, 0, 0, 1}},
	}
	data, err := Encode(f)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, got.Pose)
	assert.Equal(t, f.Pose.Position, got.Pose.Position)
}
