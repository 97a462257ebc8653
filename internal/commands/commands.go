// Package commands implements the user command surface: toggle, enable,
// disable and test. Every command posts a short confirmation through a
// Messenger, separate from anything spoken.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Command names. Editor-style ids ("voiceHooks.toggle") are accepted too.
const (
	Toggle  = "toggle"
	Enable  = "enable"
	Disable = "disable"
	Test    = "test"
)

// Confirmation messages.
const (
	MsgEnabled  = "Voice hooks enabled"
	MsgDisabled = "Voice hooks disabled"
	MsgTested   = "Voice test completed"
)

const idPrefix = "voiceHooks."

// Controller is the part of the voice notifier commands drive.
type Controller interface {
	Enabled() bool
	SetEnabled(enabled bool)
	TestNotify()
}

// Persister stores the enabled flag across restarts.
type Persister interface {
	SetEnabled(enabled bool) error
}

// Commands dispatches named commands.
type Commands struct {
	ctl   Controller
	store Persister
	msg   domain.Messenger
	log   *logger.Logger
}

// New creates the command surface. store may be nil, in which case the
// flag is not persisted.
func New(ctl Controller, store Persister, msg domain.Messenger, log *logger.Logger) *Commands {
	return &Commands{ctl: ctl, store: store, msg: msg, log: log}
}

// Names returns the accepted command names.
func Names() []string {
	names := []string{Toggle, Enable, Disable, Test}
	sort.Strings(names)
	return names
}

// Run executes the named command.
func (c *Commands) Run(ctx context.Context, name string) error {
	switch normalize(name) {
	case Toggle:
		return c.Toggle(ctx)
	case Enable:
		return c.Enable(ctx)
	case Disable:
		return c.Disable(ctx)
	case Test:
		return c.Test(ctx)
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownCommand, name)
}

// Toggle flips the enabled flag.
func (c *Commands) Toggle(ctx context.Context) error {
	return c.set(ctx, !c.ctl.Enabled())
}

// Enable turns notifications on. Announces only when it was off.
func (c *Commands) Enable(ctx context.Context) error {
	return c.set(ctx, true)
}

// Disable turns notifications off silently.
func (c *Commands) Disable(ctx context.Context) error {
	return c.set(ctx, false)
}

// Test speaks the test phrase regardless of the enabled flag.
func (c *Commands) Test(ctx context.Context) error {
	c.ctl.TestNotify()
	return c.inform(ctx, MsgTested)
}

func (c *Commands) set(ctx context.Context, enabled bool) error {
	if c.store != nil {
		if err := c.store.SetEnabled(enabled); err != nil {
			// The in-memory flag still changes; only the restart state is lost.
			c.log.Warn("commands: persisting enabled=%t: %v", enabled, err)
		}
	}
	c.ctl.SetEnabled(enabled)

	if enabled {
		return c.inform(ctx, MsgEnabled)
	}
	return c.inform(ctx, MsgDisabled)
}

func (c *Commands) inform(ctx context.Context, message string) error {
	if c.msg == nil {
		return nil
	}
	if err := c.msg.Inform(ctx, message); err != nil {
		return fmt.Errorf("posting %q: %w", message, err)
	}
	return nil
}

func normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, idPrefix)
	if name == "testVoice" {
		return Test
	}
	return strings.ToLower(name)
}
