// Package catalog centralises every spoken string. Edit the table below
// to change what voicehooks says; keep lines short, the synthesizer
// handles inflection.
package catalog

import (
	"sort"

	"github.com/hammamikhairi/voicehooks/internal/domain"
)

var defaultLines = map[domain.EventKey]string{
	// ── Files ────────────────────────────────────────────────────
	domain.KeyFileSave:   "File saved",
	domain.KeyFileCreate: "File created",
	domain.KeyFileDelete: "File deleted",

	// ── Assistant ────────────────────────────────────────────────
	domain.KeyCopilotSuggestion: "Copilot has a suggestion",
	domain.KeyCopilotAccept:     "Suggestion accepted",
	domain.KeyCopilotReject:     "Suggestion rejected",

	// ── Voice hooks itself ───────────────────────────────────────
	domain.KeyExtensionEnable:  "Voice hooks enabled",
	domain.KeyExtensionDisable: "Voice hooks disabled",
	domain.KeyTestVoice:        "This is a test",

	// ── Workspace / editor ───────────────────────────────────────
	domain.KeyWorkspaceOpen:   "Workspace opened",
	domain.KeyEditorChange:    "Text changed in the editor",
	domain.KeyTerminalExecute: "Running a command in the terminal",
	domain.KeySearchStart:     "File search started",

	// ── Debugging ────────────────────────────────────────────────
	domain.KeyDebugStart: "Debugging started",
	domain.KeyDebugStop:  "Debugging stopped",

	// ── Git ──────────────────────────────────────────────────────
	domain.KeyGitCommit: "Commit created",
	domain.KeyGitPush:   "Changes pushed",
	domain.KeyGitPull:   "Changes pulled",
}

// Catalog maps event keys to utterances. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	lines map[domain.EventKey]string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(nil)
}

// New returns the built-in catalog with overrides applied on top. Empty
// override values are ignored.
func New(overrides map[domain.EventKey]string) *Catalog {
	lines := make(map[domain.EventKey]string, len(defaultLines)+len(overrides))
	for k, v := range defaultLines {
		lines[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			lines[k] = v
		}
	}
	return &Catalog{lines: lines}
}

// Resolve returns the utterance for key, or the key itself when unmapped.
func (c *Catalog) Resolve(key domain.EventKey) string {
	if text, ok := c.Lookup(key); ok {
		return text
	}
	return string(key)
}

// Lookup returns the utterance for key and whether it is mapped.
func (c *Catalog) Lookup(key domain.EventKey) (string, bool) {
	text, ok := c.lines[key]
	return text, ok
}

// Keys returns every mapped key in lexical order.
func (c *Catalog) Keys() []domain.EventKey {
	keys := make([]domain.EventKey, 0, len(c.lines))
	for k := range c.lines {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Texts returns every utterance, ordered by key. Used to pre-warm audio
// caches.
func (c *Catalog) Texts() []string {
	keys := c.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.lines[k])
	}
	return out
}
