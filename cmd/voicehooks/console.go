package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/voicehooks/internal/commands"
	"github.com/hammamikhairi/voicehooks/internal/display"
	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// console reads command lines from the UI and runs them.
type console struct {
	ui       *display.UI
	commands *commands.Commands
	status   display.StatusSource
	log      *logger.Logger
}

func (c *console) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ui.QuitChan():
			return
		case line := <-c.ui.InputChan():
			if !c.handle(ctx, line) {
				return
			}
		}
	}
}

// handle runs one line. It returns false when the user asked to quit.
func (c *console) handle(ctx context.Context, line string) bool {
	word := strings.ToLower(strings.TrimSpace(line))
	switch word {
	case "quit", "exit", "q":
		return false
	case "help", "?":
		c.ui.PrintHint("commands: " + strings.Join(commands.Names(), ", ") + ", status, help, quit")
		c.ui.PrintHint("ctrl+t or a click on the status bar toggles voice")
		return true
	case "status":
		st := display.Snapshot(c.status)
		c.ui.PrintHint(fmt.Sprintf("%s (voice=%s, rate=%d, volume=%.2f)",
			st.Label(), st.Config.VoiceName, st.Config.Rate, st.Config.Volume))
		return true
	}

	if err := c.commands.Run(ctx, word); err != nil {
		if errors.Is(err, domain.ErrUnknownCommand) {
			c.ui.PrintError(fmt.Sprintf("unknown command %q, type 'help'", line))
			return true
		}
		c.log.Error("command %s: %v", word, err)
		c.ui.PrintError(err.Error())
	}
	return true
}
