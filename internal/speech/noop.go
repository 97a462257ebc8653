// Package speech turns utterances into audible speech. Backends block
// until the utterance has been spoken; callers serialize access.
package speech

import (
	"context"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechBackend = (*NoOp)(nil)

// NoOp is a backend that only logs. Used with -backend=none and when no
// synthesizer is installed.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a no-op backend.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Speak does nothing.
func (n *NoOp) Speak(_ context.Context, text string, _ domain.VoiceConfig) error {
	n.log.Debug("speech no-op: would say %q", text)
	return nil
}
