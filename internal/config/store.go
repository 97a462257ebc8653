// Package config loads voicehooks settings from a YAML file under the
// voiceHooks namespace, applies VOICEHOOKS_* environment overrides and
// persists the enabled flag back to the same file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Namespace is the top-level YAML key owned by voicehooks. Other keys in
// the file are preserved on write.
const Namespace = "voiceHooks"

// Environment overrides. VOICEHOOKS_ENABLED only seeds the flag: an
// enabled key in the settings file wins over it.
const (
	EnvEnabled = "VOICEHOOKS_ENABLED"
	EnvVoice   = "VOICEHOOKS_VOICE"
	EnvVolume  = "VOICEHOOKS_VOLUME"
	EnvRate    = "VOICEHOOKS_RATE"
)

// Compile-time interface check.
var _ domain.ConfigSource = (*Store)(nil)

// Settings is everything the daemon reads from the settings file.
type Settings struct {
	Voice              domain.VoiceConfig
	LinuxVoice         string
	ClassifierKeywords []string
	Utterances         map[domain.EventKey]string
}

// section mirrors the voiceHooks block. Pointers distinguish "absent"
// from zero values.
type section struct {
	Enabled            *bool             `yaml:"enabled,omitempty"`
	VoiceName          *string           `yaml:"voiceName,omitempty"`
	Volume             *float64          `yaml:"volume,omitempty"`
	Rate               *int              `yaml:"rate,omitempty"`
	LinuxVoice         *string           `yaml:"linuxVoice,omitempty"`
	ClassifierKeywords []string          `yaml:"classifierKeywords,omitempty"`
	Utterances         map[string]string `yaml:"utterances,omitempty"`
}

// Option configures the Store.
type Option func(*Store)

// WithLookupEnv replaces os.LookupEnv. Tests use it to inject overrides.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(s *Store) {
		s.lookupEnv = fn
	}
}

// Store reads and writes the settings file. Safe for concurrent access.
// With an empty path nothing touches disk and the enabled flag lives in
// memory only.
type Store struct {
	path      string
	lookupEnv func(string) (string, bool)
	log       *logger.Logger

	mu sync.RWMutex
	// enabled holds the toggle for a store without a file.
	enabled *bool
}

// NewStore creates a store backed by path.
func NewStore(path string, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		path:      path,
		lookupEnv: os.LookupEnv,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".voicehooks", "settings.yaml")
	}
	return filepath.Join(dir, "voicehooks", "settings.yaml")
}

// Path returns the settings file path, which may be empty.
func (s *Store) Path() string {
	return s.path
}

// Load implements domain.ConfigSource.
func (s *Store) Load() (domain.VoiceConfig, error) {
	st, err := s.Settings()
	if err != nil {
		return domain.VoiceConfig{}, err
	}
	return st.Voice, nil
}

// Settings reads the file and applies defaults and overrides. A missing
// file is not an error.
func (s *Store) Settings() (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, err := s.readSection()
	if err != nil {
		return Settings{}, err
	}

	cfg := domain.DefaultVoiceConfig()
	if sec.Enabled != nil {
		cfg.Enabled = *sec.Enabled
	}
	if sec.VoiceName != nil {
		cfg.VoiceName = *sec.VoiceName
	}
	if sec.Volume != nil {
		cfg.Volume = *sec.Volume
	}
	if sec.Rate != nil {
		cfg.Rate = *sec.Rate
	}
	s.applyEnv(&cfg, sec.Enabled == nil)
	if s.path == "" && s.enabled != nil {
		cfg.Enabled = *s.enabled
	}

	out := Settings{
		Voice:              cfg.Normalize(),
		ClassifierKeywords: sec.ClassifierKeywords,
	}
	if sec.LinuxVoice != nil {
		out.LinuxVoice = strings.TrimSpace(*sec.LinuxVoice)
	}
	if len(sec.Utterances) > 0 {
		out.Utterances = make(map[domain.EventKey]string, len(sec.Utterances))
		for k, v := range sec.Utterances {
			out.Utterances[domain.EventKey(k)] = v
		}
	}
	return out, nil
}

// SetEnabled persists the enabled flag. Other settings and other
// namespaces in the file are left as they are.
func (s *Store) SetEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = &enabled
	if s.path == "" {
		return nil
	}

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	sec, _ := doc[Namespace].(map[string]any)
	if sec == nil {
		sec = make(map[string]any)
	}
	sec["enabled"] = enabled
	doc[Namespace] = sec

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	s.log.Debug("config: persisted enabled=%t to %s", enabled, s.path)
	return nil
}

func (s *Store) readSection() (section, error) {
	var sec section
	data, err := s.readFile()
	if err != nil || len(data) == 0 {
		return sec, err
	}
	var doc struct {
		VoiceHooks section `yaml:"voiceHooks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sec, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return doc.VoiceHooks, nil
}

func (s *Store) readDocument() (map[string]any, error) {
	data, err := s.readFile()
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any)
	if len(data) == 0 {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

func (s *Store) readFile() ([]byte, error) {
	if s.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return data, nil
}

// applyEnv overlays VOICEHOOKS_* variables. Unparseable values are logged
// and ignored. The enabled override applies only when seedEnabled is set.
func (s *Store) applyEnv(cfg *domain.VoiceConfig, seedEnabled bool) {
	if v, ok := s.env(EnvEnabled); ok && seedEnabled {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		} else {
			s.log.Warn("config: ignoring %s=%q: %v", EnvEnabled, v, err)
		}
	}
	if v, ok := s.env(EnvVoice); ok {
		cfg.VoiceName = v
	}
	if v, ok := s.env(EnvVolume); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Volume = f
		} else {
			s.log.Warn("config: ignoring %s=%q: %v", EnvVolume, v, err)
		}
	}
	if v, ok := s.env(EnvRate); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Rate = n
		} else {
			s.log.Warn("config: ignoring %s=%q: %v", EnvRate, v, err)
		}
	}
}

func (s *Store) env(name string) (string, bool) {
	v, ok := s.lookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
