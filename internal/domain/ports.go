package domain

import "context"

// Notifier is the only entry point event reactors hold into the voice
// engine.
type Notifier interface {
	Notify(key EventKey)
}

// ConfigReloader re-reads settings after a configuration change.
type ConfigReloader interface {
	ReloadConfig()
}

// ConfigSource produces fresh settings snapshots.
type ConfigSource interface {
	Load() (VoiceConfig, error)
}

// SpeechBackend speaks a single utterance and blocks until it finishes.
// It has no notion of queuing; callers serialize access.
type SpeechBackend interface {
	Speak(ctx context.Context, text string, cfg VoiceConfig) error
}

// Messenger shows short confirmation messages to the user, separate from
// the audible path.
type Messenger interface {
	Inform(ctx context.Context, message string) error
}
