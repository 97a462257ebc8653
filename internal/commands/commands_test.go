package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

type fakeController struct {
	enabled bool
	sets    []bool
	tests   int
}

func (f *fakeController) Enabled() bool { return f.enabled }

func (f *fakeController) SetEnabled(enabled bool) {
	f.enabled = enabled
	f.sets = append(f.sets, enabled)
}

func (f *fakeController) TestNotify() { f.tests++ }

type fakeStore struct {
	saved []bool
	err   error
}

func (f *fakeStore) SetEnabled(enabled bool) error {
	f.saved = append(f.saved, enabled)
	return f.err
}

type collectingMessenger struct {
	messages []string
}

func (m *collectingMessenger) Inform(_ context.Context, message string) error {
	m.messages = append(m.messages, message)
	return nil
}

func TestRunCommands(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		startOn     bool
		wantEnabled bool
		wantMsg     string
	}{
		{"toggle off", "toggle", true, false, MsgDisabled},
		{"toggle on", "toggle", false, true, MsgEnabled},
		{"enable", "enable", false, true, MsgEnabled},
		{"enable when on", "enable", true, true, MsgEnabled},
		{"disable", "disable", true, false, MsgDisabled},
		{"editor id", "voiceHooks.toggle", true, false, MsgDisabled},
		{"case insensitive", " Disable ", true, false, MsgDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := &fakeController{enabled: tt.startOn}
			store := &fakeStore{}
			msg := &collectingMessenger{}
			c := New(ctl, store, msg, logger.Nop())

			if err := c.Run(context.Background(), tt.command); err != nil {
				t.Fatalf("Run(%q): %v", tt.command, err)
			}
			if ctl.enabled != tt.wantEnabled {
				t.Fatalf("enabled = %t, want %t", ctl.enabled, tt.wantEnabled)
			}
			if len(store.saved) != 1 || store.saved[0] != tt.wantEnabled {
				t.Fatalf("persisted %v, want [%t]", store.saved, tt.wantEnabled)
			}
			if len(msg.messages) != 1 || msg.messages[0] != tt.wantMsg {
				t.Fatalf("messages = %q, want %q", msg.messages, tt.wantMsg)
			}
		})
	}
}

func TestTestCommand(t *testing.T) {
	for _, name := range []string{"test", "voiceHooks.testVoice"} {
		ctl := &fakeController{enabled: false}
		store := &fakeStore{}
		msg := &collectingMessenger{}
		c := New(ctl, store, msg, logger.Nop())

		if err := c.Run(context.Background(), name); err != nil {
			t.Fatalf("Run(%q): %v", name, err)
		}
		if ctl.tests != 1 {
			t.Fatalf("%s: TestNotify calls = %d, want 1", name, ctl.tests)
		}
		if len(ctl.sets) != 0 || len(store.saved) != 0 {
			t.Fatalf("%s: test must not change the enabled flag", name)
		}
		if len(msg.messages) != 1 || msg.messages[0] != MsgTested {
			t.Fatalf("%s: messages = %q", name, msg.messages)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	c := New(&fakeController{}, nil, nil, logger.Nop())
	err := c.Run(context.Background(), "explode")
	if !errors.Is(err, domain.ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestPersistFailureStillApplies(t *testing.T) {
	ctl := &fakeController{enabled: true}
	c := New(ctl, &fakeStore{err: errors.New("read-only fs")}, nil, logger.Nop())
	if err := c.Disable(context.Background()); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if ctl.enabled {
		t.Fatal("flag should still change when persisting fails")
	}
}
