package monitor

import (
	"sync"
	"testing"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// fakeTarget records notifier calls.
type fakeTarget struct {
	mu      sync.Mutex
	keys    []domain.EventKey
	reloads int
}

func (f *fakeTarget) Notify(key domain.EventKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
}

func (f *fakeTarget) ReloadConfig() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
}

func (f *fakeTarget) notified() []domain.EventKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.EventKey(nil), f.keys...)
}

func TestMonitorMapsEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.Event
		want []domain.EventKey
	}{
		{"save", domain.Event{Type: domain.EventFileSaved}, []domain.EventKey{domain.KeyFileSave}},
		{"create", domain.Event{Type: domain.EventFileCreated}, []domain.EventKey{domain.KeyFileCreate}},
		{"delete", domain.Event{Type: domain.EventFileDeleted}, []domain.EventKey{domain.KeyFileDelete}},
		{"terminal", domain.Event{Type: domain.EventTerminalOpened}, []domain.EventKey{domain.KeyTerminalExecute}},
		{"debug start", domain.Event{Type: domain.EventDebugStarted}, []domain.EventKey{domain.KeyDebugStart}},
		{"debug stop", domain.Event{Type: domain.EventDebugStopped}, []domain.EventKey{domain.KeyDebugStop}},
		{"explicit key", domain.Event{Type: domain.EventNotify, Key: domain.KeyGitPush}, []domain.EventKey{domain.KeyGitPush}},
		{"workspace is not the monitor's", domain.Event{Type: domain.EventWorkspaceChanged}, nil},
		{
			name: "long insertion",
			ev:   domain.Event{Type: domain.EventTextChanged, Changes: []domain.ContentChange{{Text: "return"}}},
			want: []domain.EventKey{domain.KeyEditorChange},
		},
		{
			name: "exactly five characters is ignored",
			ev:   domain.Event{Type: domain.EventTextChanged, Changes: []domain.ContentChange{{Text: "hello"}}},
			want: nil,
		},
		{
			name: "any change in the batch qualifies",
			ev: domain.Event{Type: domain.EventTextChanged, Changes: []domain.ContentChange{
				{Text: "a"}, {Text: ""}, {Text: "println"},
			}},
			want: []domain.EventKey{domain.KeyEditorChange},
		},
		{
			name: "multibyte counted as characters",
			ev:   domain.Event{Type: domain.EventTextChanged, Changes: []domain.ContentChange{{Text: "日本語です"}}},
			want: nil,
		},
		{"cursor move", domain.Event{Type: domain.EventTextChanged}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{}
			NewMonitor(target, logger.Nop()).Handle(tt.ev)
			got := target.notified()
			if len(got) != len(tt.want) {
				t.Fatalf("notified %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("notified %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMonitorConfigChanges(t *testing.T) {
	tests := []struct {
		name     string
		sections []string
		reload   bool
	}{
		{"own namespace", []string{"voiceHooks"}, true},
		{"own setting", []string{"editor.fontSize", "voiceHooks.rate"}, true},
		{"unscoped", nil, true},
		{"other namespace", []string{"editor.fontSize"}, false},
		{"prefix lookalike", []string{"voiceHooksExtra"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{}
			NewMonitor(target, logger.Nop()).Handle(domain.Event{Type: domain.EventConfigChanged, Sections: tt.sections})
			if (target.reloads == 1) != tt.reload {
				t.Fatalf("reloads = %d, want reload=%t", target.reloads, tt.reload)
			}
			if len(target.notified()) != 0 {
				t.Fatal("config change must not speak")
			}
		})
	}
}
