package domain

import "fmt"

// EventType identifies an inbound host event.
type EventType string

const (
	EventFileSaved        EventType = "file.saved"
	EventFileCreated      EventType = "file.created"
	EventFileDeleted      EventType = "file.deleted"
	EventTextChanged      EventType = "text.changed"
	EventTerminalOpened   EventType = "terminal.opened"
	EventDebugStarted     EventType = "debug.started"
	EventDebugStopped     EventType = "debug.stopped"
	EventWorkspaceChanged EventType = "workspace.changed"
	EventConfigChanged    EventType = "config.changed"
	// EventNotify carries an explicit EventKey, e.g. git.commit from an
	// editor plugin that can see source-control activity.
	EventNotify EventType = "notify"
)

var eventTypes = map[EventType]bool{
	EventFileSaved:        true,
	EventFileCreated:      true,
	EventFileDeleted:      true,
	EventTextChanged:      true,
	EventTerminalOpened:   true,
	EventDebugStarted:     true,
	EventDebugStopped:     true,
	EventWorkspaceChanged: true,
	EventConfigChanged:    true,
	EventNotify:           true,
}

// ContentChange is one edit inside a text.changed batch.
type ContentChange struct {
	// Text is the inserted text. Empty for pure deletions.
	Text string `json:"text"`
}

// Event is a single message delivered by a host event source. Only the
// fields relevant to Type are populated.
type Event struct {
	Type     EventType       `json:"type"`
	Path     string          `json:"path,omitempty"`
	Key      EventKey        `json:"key,omitempty"`
	Changes  []ContentChange `json:"changes,omitempty"`
	Sections []string        `json:"sections,omitempty"`
	// Source names the producer (watcher, bridge, ...). Informational.
	Source string `json:"source,omitempty"`
}

// Validate reports whether the event is well formed.
func (e Event) Validate() error {
	if !eventTypes[e.Type] {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
	if e.Type == EventNotify && e.Key == "" {
		return fmt.Errorf("%w: notify event without key", ErrInvalidEvent)
	}
	return nil
}
