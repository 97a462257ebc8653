package speech

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechBackend = (*Fallback)(nil)

// Named pairs a backend with a label for logs.
type Named struct {
	Name    string
	Backend domain.SpeechBackend
}

// Fallback tries each backend in order until one succeeds.
type Fallback struct {
	backends []Named
	log      *logger.Logger
}

// NewFallback creates a fallback chain.
func NewFallback(log *logger.Logger, backends ...Named) *Fallback {
	return &Fallback{backends: backends, log: log}
}

// Speak returns nil as soon as one backend succeeds, otherwise all errors
// joined.
func (f *Fallback) Speak(ctx context.Context, text string, cfg domain.VoiceConfig) error {
	if len(f.backends) == 0 {
		return domain.ErrBackendUnavailable
	}
	var errs []error
	for _, b := range f.backends {
		err := b.Backend.Speak(ctx, text, cfg)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
		if ctx.Err() != nil {
			break
		}
		f.log.Warn("fallback: %s failed, trying next: %v", b.Name, err)
	}
	return errors.Join(errs...)
}
