package speech

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

type stubBackend struct {
	calls int
	err   error
}

func (s *stubBackend) Speak(context.Context, string, domain.VoiceConfig) error {
	s.calls++
	return s.err
}

func TestFallbackUsesFirstSuccess(t *testing.T) {
	failing := &stubBackend{err: errors.New("offline")}
	working := &stubBackend{}
	unused := &stubBackend{}
	f := NewFallback(logger.Nop(),
		Named{"azure", failing},
		Named{"system", working},
		Named{"noop", unused},
	)

	if err := f.Speak(context.Background(), "hi", domain.DefaultVoiceConfig()); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if failing.calls != 1 || working.calls != 1 || unused.calls != 0 {
		t.Fatalf("calls = %d/%d/%d", failing.calls, working.calls, unused.calls)
	}
}

func TestFallbackJoinsErrors(t *testing.T) {
	f := NewFallback(logger.Nop(),
		Named{"azure", &stubBackend{err: errors.New("offline")}},
		Named{"system", &stubBackend{err: domain.ErrBackendUnavailable}},
	)
	err := f.Speak(context.Background(), "hi", domain.DefaultVoiceConfig())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want wrapped ErrBackendUnavailable", err)
	}
	if !strings.Contains(err.Error(), "azure: offline") {
		t.Fatalf("err = %v, want azure failure listed", err)
	}
}

func TestFallbackEmpty(t *testing.T) {
	f := NewFallback(logger.Nop())
	if err := f.Speak(context.Background(), "hi", domain.DefaultVoiceConfig()); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestNoOpSpeak(t *testing.T) {
	if err := NewNoOp(logger.Nop()).Speak(context.Background(), "hi", domain.DefaultVoiceConfig()); err != nil {
		t.Fatalf("Speak: %v", err)
	}
}
