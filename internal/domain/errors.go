package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrUnknownEvent       = errors.New("unknown event type")
	ErrInvalidEvent       = errors.New("invalid event")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrBackendUnavailable = errors.New("speech backend unavailable")
)
