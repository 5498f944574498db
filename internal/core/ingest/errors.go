package ingest

import "errors"

var (
	ErrListenerRunning    = errors.New("listener is already running")
	ErrListenerNotRunning = errors.New("listener is not running")
	ErrSessionLimit       = errors.New("session limit reached")
)
