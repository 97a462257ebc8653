// Package voice implements the notification engine: it decides which
// event keys are spoken, serializes access to the speech backend and
// rate-limits each key.
//
// A Notifier accepts an utterance only when it is enabled, nothing is
// currently being spoken, and the same key has not been accepted within
// the debounce window. Rejected requests are dropped, never queued.
package voice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/voicehooks/internal/catalog"
	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Notifier       = (*Notifier)(nil)
	_ domain.ConfigReloader = (*Notifier)(nil)
)

// DefaultDebounce is the minimum interval between two accepted
// notifications for the same key.
const DefaultDebounce = 1000 * time.Millisecond

// DefaultSpeakTimeout bounds a single backend call so a hung synthesizer
// cannot keep the notifier busy forever.
const DefaultSpeakTimeout = 30 * time.Second

// Drop reasons reported to the Recorder.
const (
	DropDisabled  = "disabled"
	DropBusy      = "busy"
	DropDebounced = "debounced"
)

// Recorder observes notifier decisions. Implementations must be cheap and
// must not call back into the Notifier.
type Recorder interface {
	Dropped(key domain.EventKey, reason string)
	Spoken(key domain.EventKey, took time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) Dropped(domain.EventKey, string)              {}
func (nopRecorder) Spoken(domain.EventKey, time.Duration, error) {}

// Option configures the Notifier.
type Option func(*Notifier)

// WithDebounce sets the per-key debounce window.
func WithDebounce(d time.Duration) Option {
	return func(n *Notifier) {
		n.debounce = d
	}
}

// WithClock replaces time.Now. Tests use it to control the debounce
// table.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) {
		n.now = now
	}
}

// WithSpeakTimeout bounds each backend call. Non-positive values keep
// DefaultSpeakTimeout.
func WithSpeakTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.speakTimeout = d
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(n *Notifier) {
		if r != nil {
			n.recorder = r
		}
	}
}

// WithCatalog replaces the built-in utterance catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(n *Notifier) {
		n.catalog = c
	}
}

// Notifier owns the enabled flag, the settings snapshot, the per-key
// debounce table and the single-flight playback flag. None of them are
// reachable from outside.
type Notifier struct {
	backend      domain.SpeechBackend
	source       domain.ConfigSource
	catalog      *catalog.Catalog
	recorder     Recorder
	log          *logger.Logger
	now          func() time.Time
	debounce     time.Duration
	speakTimeout time.Duration

	mu         sync.Mutex
	cfg        domain.VoiceConfig
	lastSpoken map[domain.EventKey]time.Time
	speaking   bool
	idle       chan struct{} // closed while not speaking
	listeners  []func(enabled bool)
}

// New creates a Notifier and loads the initial settings from source. A
// load failure falls back to the defaults.
func New(backend domain.SpeechBackend, source domain.ConfigSource, log *logger.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		backend:      backend,
		source:       source,
		catalog:      catalog.Default(),
		recorder:     nopRecorder{},
		log:          log,
		now:          time.Now,
		debounce:     DefaultDebounce,
		speakTimeout: DefaultSpeakTimeout,
		lastSpoken:   make(map[domain.EventKey]time.Time),
		idle:         make(chan struct{}),
	}
	close(n.idle)
	for _, opt := range opts {
		opt(n)
	}

	n.cfg = domain.DefaultVoiceConfig()
	if cfg, err := n.load(); err != nil {
		n.log.Warn("loading voice config, using defaults: %v", err)
	} else {
		n.cfg = cfg
	}
	return n
}

// Notify asks for key to be spoken. It returns immediately; speech, if
// accepted, runs in the background.
func (n *Notifier) Notify(key domain.EventKey) {
	n.mu.Lock()
	if !n.cfg.Enabled {
		n.mu.Unlock()
		n.drop(key, DropDisabled)
		return
	}
	if n.speaking {
		n.mu.Unlock()
		n.drop(key, DropBusy)
		return
	}
	now := n.now()
	if last, ok := n.lastSpoken[key]; ok && now.Sub(last) < n.debounce {
		n.mu.Unlock()
		n.drop(key, DropDebounced)
		return
	}
	// Recorded before playback so a burst for the same key is rejected
	// even while the first utterance is still being spoken.
	n.lastSpoken[key] = now
	cfg := n.beginLocked()
	n.mu.Unlock()

	go n.speak(key, n.catalog.Resolve(key), cfg)
}

// TestNotify speaks the test phrase. It ignores the debounce table and the
// enabled flag but never interrupts speech already in progress.
func (n *Notifier) TestNotify() {
	n.mu.Lock()
	if n.speaking {
		n.mu.Unlock()
		n.drop(domain.KeyTestVoice, DropBusy)
		return
	}
	cfg := n.beginLocked()
	n.mu.Unlock()

	go n.speak(domain.KeyTestVoice, n.catalog.Resolve(domain.KeyTestVoice), cfg)
}

// SetEnabled flips the enabled flag. Turning the notifier on announces
// itself (subject to debounce); turning it off is silent.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	was := n.cfg.Enabled
	n.cfg.Enabled = enabled
	listeners := n.listeners
	n.mu.Unlock()

	if was == enabled {
		return
	}
	n.log.Info("voice notifications %s", onOff(enabled))
	for _, fn := range listeners {
		fn(enabled)
	}
	if enabled {
		n.Notify(domain.KeyExtensionEnable)
	}
}

// ReloadConfig replaces the settings snapshot with a fresh one from the
// configuration source. The debounce table and playback state are left
// alone. On error the previous snapshot is kept.
func (n *Notifier) ReloadConfig() {
	cfg, err := n.load()
	if err != nil {
		n.log.Error("reloading voice config: %v", err)
		return
	}

	n.mu.Lock()
	was := n.cfg.Enabled
	n.cfg = cfg
	listeners := n.listeners
	n.mu.Unlock()

	n.log.Info("voice config reloaded (enabled=%t, voice=%s, rate=%d, volume=%.2f)",
		cfg.Enabled, cfg.VoiceName, cfg.Rate, cfg.Volume)
	if was != cfg.Enabled {
		for _, fn := range listeners {
			fn(cfg.Enabled)
		}
	}
}

// Enabled reports whether notifications are on.
func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg.Enabled
}

// Speaking reports whether a backend call is in flight.
func (n *Notifier) Speaking() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.speaking
}

// Config returns the current settings snapshot.
func (n *Notifier) Config() domain.VoiceConfig {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg
}

// OnEnabledChange registers fn to run after every enabled/disabled
// transition. fn runs on the goroutine that caused the change.
func (n *Notifier) OnEnabledChange(fn func(enabled bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Wait blocks until no speech is in flight or ctx is done.
func (n *Notifier) Wait(ctx context.Context) error {
	n.mu.Lock()
	idle := n.idle
	n.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// beginLocked marks the notifier as speaking. Must be called with n.mu
// held.
func (n *Notifier) beginLocked() domain.VoiceConfig {
	n.speaking = true
	n.idle = make(chan struct{})
	return n.cfg
}

// finish clears the playback flag and wakes waiters.
func (n *Notifier) finish() {
	n.mu.Lock()
	n.speaking = false
	close(n.idle)
	n.mu.Unlock()
}

// speak runs one backend call. The playback flag is cleared however the
// call ends, including a panic inside the backend.
func (n *Notifier) speak(key domain.EventKey, text string, cfg domain.VoiceConfig) {
	start := n.now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speech backend panic: %v", r)
			n.log.Error("speak %s: %v", key, err)
		}
		n.recorder.Spoken(key, n.now().Sub(start), err)
		n.finish()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), n.speakTimeout)
	defer cancel()

	n.log.Debug("speaking %s: %q", key, text)
	if err = n.backend.Speak(ctx, text, cfg); err != nil {
		n.log.Error("speak %s: %v", key, err)
	}
}

func (n *Notifier) drop(key domain.EventKey, reason string) {
	n.log.Debug("dropped %s (%s)", key, reason)
	n.recorder.Dropped(key, reason)
}

func (n *Notifier) load() (domain.VoiceConfig, error) {
	if n.source == nil {
		return domain.DefaultVoiceConfig(), nil
	}
	cfg, err := n.source.Load()
	if err != nil {
		return domain.VoiceConfig{}, err
	}
	return cfg.Normalize(), nil
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
