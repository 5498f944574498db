// Package ingest defines the pose-frame wire model device sessions
// stream to the gateway, and the transport listeners that carry it.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/g3n/engine/math32"

	"github.com/holoray/holoray/internal/core/input"
)

// FrameType discriminates the frames a device session may send.
type FrameType string

const (
	FrameHello     FrameType = "hello"
	FrameHead      FrameType = "head"
	FrameGaze      FrameType = "gaze"
	FrameAttach    FrameType = "attach"
	FramePose      FrameType = "pose"
	FrameDetach    FrameType = "detach"
	FrameHeartbeat FrameType = "heartbeat"
	FrameBye       FrameType = "bye"
)

// Pose is the wire form of a position + orientation.
type Pose struct {
	Position [3]float32 `json:"position"`
	// Rotation is a quaternion in x, y, z, w order.
	Rotation [4]float32 `json:"rotation"`
}

// ToInput converts a wire pose to the registry's pose type.
func (p Pose) ToInput() input.Pose {
	return input.Pose{
		Position: math32.Vector3{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]},
		Rotation: math32.Quaternion{X: p.Rotation[0], Y: p.Rotation[1], Z: p.Rotation[2], W: p.Rotation[3]},
	}
}

// PoseFromInput converts a registry pose to its wire form.
func PoseFromInput(p input.Pose) Pose {
	return Pose{
		Position: [3]float32{p.Position.X, p.Position.Y, p.Position.Z},
		Rotation: [4]float32{p.Rotation.X, p.Rotation.Y, p.Rotation.Z, p.Rotation.W},
	}
}

// Mapping is the wire form of one interaction channel update.
type Mapping struct {
	Usage string `json:"usage"`
	Pose  Pose   `json:"pose"`
}

// Frame is one message from a device session. Fields are populated
// depending on Type:
//   - hello: device self-description in Device
//   - head: Pose (the headset pose; also feeds the active camera)
//   - gaze: Pose (eye-gaze origin + orientation)
//   - attach: Source, Kind, Handedness, optionally Mappings
//   - pose: Source, Mappings (refresh of interaction channels)
//   - detach: Source
//   - heartbeat, bye: no payload
type Frame struct {
	Type       FrameType        `json:"type"`
	Device     string           `json:"device,omitempty"`
	Source     string           `json:"source,omitempty"`
	Kind       input.SourceKind `json:"kind,omitempty"`
	Handedness input.Handedness `json:"handedness,omitempty"`
	Pose       *Pose            `json:"pose,omitempty"`
	Mappings   []Mapping        `json:"mappings,omitempty"`
}

// Encode converts a Frame into its JSON wire form.
func Encode(f *Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses a JSON frame and rejects frames without a type.
func Decode(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame has no type")
	}
	return &f, nil
}

// Session identifies one connected device session.
type Session struct {
	ID         string
	RemoteAddr string
	Transport  string
	OpenedAt   time.Time
}

// Handler consumes decoded frames. The gateway implements it; listeners
// call it from their read loops.
type Handler interface {
	// HandleFrame applies one frame. A returned error is logged by the
	// listener but does not terminate the session.
	HandleFrame(ctx context.Context, sess Session, frame *Frame) error
	// SessionClosed is called once when a session's connection ends.
	SessionClosed(sess Session)
}

// Listener is one ingest transport.
type Listener interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Addr() string
}

// Config holds the settings shared by ingest transports.
type Config struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxFrameBytes int64
	MaxSessions   int
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          "127.0.0.1:8420",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  10 * time.Second,
		MaxFrameBytes: 64 * 1024,
		MaxSessions:   256,
	}
}
