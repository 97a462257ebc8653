package display

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Compile-time interface check.
var _ domain.Messenger = (*CLIMessenger)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	cyan  = "\033[36m"
)

// CLIMessenger writes confirmation messages to a plain stream. It is used
// when no interactive console is running.
type CLIMessenger struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	log   *logger.Logger
}

// NewCLIMessenger creates a messenger writing to out, or stdout if nil.
// color enables ANSI formatting.
func NewCLIMessenger(out io.Writer, color bool, log *logger.Logger) *CLIMessenger {
	if out == nil {
		out = os.Stdout
	}
	return &CLIMessenger{out: out, color: color, log: log}
}

// Inform prints message on its own line.
func (m *CLIMessenger) Inform(_ context.Context, message string) error {
	m.log.Debug("inform: %s", message)

	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.color {
		_, err = fmt.Fprintf(m.out, "%s%s%s%s\n", cyan, bold, message, reset)
	} else {
		_, err = fmt.Fprintln(m.out, message)
	}
	return err
}
