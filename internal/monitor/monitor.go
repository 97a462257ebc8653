package monitor

import (
	"strings"
	"unicode/utf8"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// ConfigNamespace is the settings section owned by voicehooks. A
// config.changed event only triggers a reload when it touches it.
const ConfigNamespace = "voiceHooks"

// minChangeLen is the inserted length a text change must exceed to be
// announced. Shorter edits are typing noise.
const minChangeLen = 5

// Target is what the monitor drives.
type Target interface {
	domain.Notifier
	domain.ConfigReloader
}

// Compile-time interface check.
var _ Handler = (*Monitor)(nil)

// Monitor maps host events one-to-one onto event keys.
type Monitor struct {
	target Target
	log    *logger.Logger
}

// NewMonitor creates an event monitor.
func NewMonitor(target Target, log *logger.Logger) *Monitor {
	return &Monitor{target: target, log: log}
}

// Handle implements Handler.
func (m *Monitor) Handle(ev domain.Event) {
	switch ev.Type {
	case domain.EventFileSaved:
		m.target.Notify(domain.KeyFileSave)
	case domain.EventFileCreated:
		m.target.Notify(domain.KeyFileCreate)
	case domain.EventFileDeleted:
		m.target.Notify(domain.KeyFileDelete)
	case domain.EventTextChanged:
		if significantChange(ev.Changes) {
			m.target.Notify(domain.KeyEditorChange)
		}
	case domain.EventTerminalOpened:
		m.target.Notify(domain.KeyTerminalExecute)
	case domain.EventDebugStarted:
		m.target.Notify(domain.KeyDebugStart)
	case domain.EventDebugStopped:
		m.target.Notify(domain.KeyDebugStop)
	case domain.EventConfigChanged:
		if affectsNamespace(ev.Sections) {
			m.log.Debug("monitor: settings changed, reloading")
			m.target.ReloadConfig()
		}
	case domain.EventNotify:
		m.target.Notify(ev.Key)
	}
}

// significantChange reports whether any change inserts more than
// minChangeLen characters.
func significantChange(changes []domain.ContentChange) bool {
	for _, c := range changes {
		if utf8.RuneCountInString(c.Text) > minChangeLen {
			return true
		}
	}
	return false
}

// affectsNamespace reports whether sections touch ConfigNamespace. An
// empty list means "unknown scope" and counts as affected.
func affectsNamespace(sections []string) bool {
	if len(sections) == 0 {
		return true
	}
	for _, s := range sections {
		if s == ConfigNamespace || strings.HasPrefix(s, ConfigNamespace+".") {
			return true
		}
	}
	return false
}
