package gateway

import (
	"errors"

	"github.com/holoray/holoray/internal/core/ingest"
)

// Gateway lifecycle and frame-handling errors.
var (
	ErrServerClosed         = errors.New("gateway is closed")
	ErrServerAlreadyRunning = errors.New("gateway is already running")
	ErrServerNotRunning     = errors.New("gateway is not running")
	ErrSessionLimit         = ingest.ErrSessionLimit
	ErrUnknownSource        = errors.New("frame references an unattached source")
	ErrMissingSourceID      = errors.New("frame has no source id")
	ErrMissingPose          = errors.New("frame has no pose")
)
