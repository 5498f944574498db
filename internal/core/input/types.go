// Package input models the set of currently detected mixed-reality input
// sources (head, eyes, hands, motion controllers) and the registry the
// ray resolver queries.
package input

import (
	"encoding/json"
	"fmt"
)

// SourceKind identifies the kind of input source a record represents.
type SourceKind uint8

const (
	KindUnknown SourceKind = iota
	KindHead
	KindEyes
	KindHand
	KindController
	KindVoice
)

func (k SourceKind) String() string {
	switch k {
	case KindHead:
		return "head"
	case KindEyes:
		return "eyes"
	case KindHand:
		return "hand"
	case KindController:
		return "controller"
	case KindVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// ParseSourceKind maps a wire string to a SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	switch s {
	case "head":
		return KindHead, nil
	case "eyes":
		return KindEyes, nil
	case "hand":
		return KindHand, nil
	case "controller":
		return KindController, nil
	case "voice":
		return KindVoice, nil
	case "unknown", "":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown source kind %q", s)
	}
}

func (k SourceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SourceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseSourceKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Handedness designates which hand a bimanual source belongs to. It is
// meaningful only for hand and controller sources.
type Handedness uint8

const (
	HandNone Handedness = iota
	HandLeft
	HandRight
)

func (h Handedness) String() string {
	switch h {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	default:
		return "none"
	}
}

// ParseHandedness maps a wire string to a Handedness.
func ParseHandedness(s string) (Handedness, error) {
	switch s {
	case "left":
		return HandLeft, nil
	case "right":
		return HandRight, nil
	case "none", "":
		return HandNone, nil
	default:
		return HandNone, fmt.Errorf("unknown handedness %q", s)
	}
}

func (h Handedness) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Handedness) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	hand, err := ParseHandedness(s)
	if err != nil {
		return err
	}
	*h = hand
	return nil
}

// MappingUsage names an interaction channel on a source, e.g. the
// spatial pointer a controller aims with.
type MappingUsage string

const (
	UsageSpatialPointer MappingUsage = "spatial_pointer"
	UsageSpatialGrip    MappingUsage = "spatial_grip"
	UsageSelect         MappingUsage = "select"
	UsageGripPress      MappingUsage = "grip_press"
	UsageMenuPress      MappingUsage = "menu_press"
)
