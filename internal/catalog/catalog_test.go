package catalog

import (
	"testing"

	"github.com/hammamikhairi/voicehooks/internal/domain"
)

func TestResolveKnownKeys(t *testing.T) {
	c := Default()
	tests := []struct {
		key  domain.EventKey
		want string
	}{
		{domain.KeyFileSave, "File saved"},
		{domain.KeyCopilotAccept, "Suggestion accepted"},
		{domain.KeyTestVoice, "This is a test"},
		{domain.KeyExtensionEnable, "Voice hooks enabled"},
		{domain.KeyDebugStop, "Debugging stopped"},
	}
	for _, tt := range tests {
		if got := c.Resolve(tt.key); got != tt.want {
			t.Fatalf("Resolve(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestResolveUnknownFallsBackToKey(t *testing.T) {
	c := Default()
	if got := c.Resolve("foo.bar"); got != "foo.bar" {
		t.Fatalf("Resolve(foo.bar) = %q, want raw key", got)
	}
	if _, ok := c.Lookup("foo.bar"); ok {
		t.Fatal("Lookup(foo.bar) reported a mapping")
	}
}

func TestEveryBuiltInKeyHasText(t *testing.T) {
	c := Default()
	keys := []domain.EventKey{
		domain.KeyFileSave, domain.KeyFileCreate, domain.KeyFileDelete,
		domain.KeyCopilotSuggestion, domain.KeyCopilotAccept, domain.KeyCopilotReject,
		domain.KeyExtensionEnable, domain.KeyExtensionDisable, domain.KeyTestVoice,
		domain.KeyWorkspaceOpen, domain.KeyEditorChange, domain.KeyTerminalExecute,
		domain.KeySearchStart, domain.KeyDebugStart, domain.KeyDebugStop,
		domain.KeyGitCommit, domain.KeyGitPush, domain.KeyGitPull,
	}
	for _, k := range keys {
		text, ok := c.Lookup(k)
		if !ok || text == "" {
			t.Fatalf("key %s has no utterance", k)
		}
	}
	if got := len(c.Keys()); got != len(keys) {
		t.Fatalf("catalog has %d keys, want %d", got, len(keys))
	}
}

func TestOverrides(t *testing.T) {
	c := New(map[domain.EventKey]string{
		domain.KeyFileSave: "Saved",
		domain.KeyGitPush:  "",
		"deploy.done":      "Deployed",
	})
	if got := c.Resolve(domain.KeyFileSave); got != "Saved" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Resolve(domain.KeyGitPush); got != "Changes pushed" {
		t.Fatalf("empty override should be ignored, got %q", got)
	}
	if got := c.Resolve("deploy.done"); got != "Deployed" {
		t.Fatalf("new key not added: %q", got)
	}
	if Default().Resolve(domain.KeyFileSave) != "File saved" {
		t.Fatal("overrides leaked into the default table")
	}
}

func TestTextsOrderedByKey(t *testing.T) {
	c := New(nil)
	texts := c.Texts()
	keys := c.Keys()
	if len(texts) != len(keys) {
		t.Fatalf("len(texts) = %d, len(keys) = %d", len(texts), len(keys))
	}
	for i, k := range keys {
		if texts[i] != c.Resolve(k) {
			t.Fatalf("texts[%d] = %q, want %q", i, texts[i], c.Resolve(k))
		}
	}
}
