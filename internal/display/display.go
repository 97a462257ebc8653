// Package display provides the terminal console using Bubble Tea.
//
// The [UI] type keeps a voice status bar and a command prompt at the
// bottom of the terminal. Confirmation messages and log-free output are
// printed above the rendered area via Program.Println, so concurrent
// writes never garble the display. Clicking the status bar or pressing
// ctrl+t toggles notifications.
package display

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/voicehooks/internal/domain"
)

// Compile-time interface check.
var _ domain.Messenger = (*UI)(nil)

// ToggleCommand is pushed on the input channel when the status bar is
// clicked.
const ToggleCommand = "toggle"

const (
	prompt       = "voice> "
	refreshEvery = 250 * time.Millisecond
	// viewLines is the height of View: bar, spacer, prompt.
	viewLines = 3
)

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may safely
// call [UI.Println], [UI.Inform] and read from [UI.InputChan] at any time
// after [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	status  StatusSource
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the console. Call Run() to start.
func NewUI(status StatusSource) *UI {
	return &UI{
		status:  status,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. Before the program
// starts, or after it exits, it falls back to fmt.Println.
func (u *UI) Println(a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Inform implements domain.Messenger.
func (u *UI) Inform(_ context.Context, message string) error {
	u.Println(infoStyle.Render("  " + message))
	return nil
}

// PrintHint prints a dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(hintStyle.Render("  " + text))
}

// PrintError prints an error line.
func (u *UI) PrintError(text string) {
	u.Println(errorStyle.Render("  " + text))
}

// InputChan returns completed command lines, including synthetic
// ToggleCommand lines from status bar clicks.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	m := newModel(u.status, u.inputCh, u.readyCh, func(v string) {
		u.Println(promptStyle.Render("voice") + hintStyle.Render("> ") + echoStyle.Render(v))
	})

	u.program = tea.NewProgram(m, tea.WithMouseCellMotion())
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	status  StatusSource
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	current Status
	width   int
	height  int
}

type refreshMsg time.Time

func newModel(status StatusSource, inputCh chan<- string, readyCh chan struct{}, echoFn func(string)) model {
	ti := textinput.New()
	// A plain-text prompt keeps the textinput width math correct.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = echoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Placeholder = "toggle, enable, disable, test, status, help, quit"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60

	return model{
		status:  status,
		input:   ti,
		inputCh: inputCh,
		readyCh: readyCh,
		echoFn:  echoFn,
		current: Snapshot(status),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		refreshCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if ch != nil {
			close(ch)
		}
		return nil
	}
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlT:
			m.send(ToggleCommand)
			return m, nil
		case tea.KeyEnter:
			v := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if v == "" {
				return m, nil
			}
			m.send(v)
			// Echo from a Cmd so Println runs outside Update.
			echoFn := m.echoFn
			return m, func() tea.Msg {
				if echoFn != nil {
					echoFn(v)
				}
				return nil
			}
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.onBar(msg.Y) {
			m.send(ToggleCommand)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case refreshMsg:
		m.current = Snapshot(m.status)
		return m, tea.Batch(refreshCmd(), tea.SetWindowTitle("voicehooks: "+m.current.Label()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send pushes a command line without blocking the event loop.
func (m model) send(line string) {
	select {
	case m.inputCh <- line:
	default:
	}
}

// onBar reports whether terminal row y is the status bar. The inline view
// sits at the bottom of the terminal once output has scrolled.
func (m model) onBar(y int) bool {
	if m.height <= 0 {
		return false
	}
	return y == m.height-viewLines
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(RenderBar(m.current, m.width))
	b.WriteByte('\n')
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}
