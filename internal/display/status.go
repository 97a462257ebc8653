package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/voicehooks/internal/domain"
)

// Indicator labels.
const (
	LabelOn  = "Voice on"
	LabelOff = "Voice off"
)

// StatusSource is polled for the status bar.
type StatusSource interface {
	Enabled() bool
	Speaking() bool
	Config() domain.VoiceConfig
}

// Status is one snapshot of what the indicator shows.
type Status struct {
	Enabled  bool
	Speaking bool
	Config   domain.VoiceConfig
}

// Snapshot reads src.
func Snapshot(src StatusSource) Status {
	return Status{Enabled: src.Enabled(), Speaking: src.Speaking(), Config: src.Config()}
}

// Label returns the indicator text.
func (s Status) Label() string {
	if s.Enabled {
		return LabelOn
	}
	return LabelOff
}

// RenderIndicator renders the clickable on/off badge.
func RenderIndicator(s Status) string {
	if s.Enabled {
		return onStyle.Render("● " + LabelOn)
	}
	return offStyle.Render("○ " + LabelOff)
}

// RenderBar renders the full-width status bar: the indicator followed by
// the active voice settings.
func RenderBar(s Status, width int) string {
	parts := []string{RenderIndicator(s)}
	if s.Speaking {
		parts = append(parts, speakingStyle.Render("speaking…"))
	}
	parts = append(parts,
		labelStyle.Render("voice: ")+valueStyle.Render(s.Config.VoiceName),
		labelStyle.Render("rate: ")+valueStyle.Render(fmt.Sprintf("%d", s.Config.Rate)),
		labelStyle.Render("volume: ")+valueStyle.Render(fmt.Sprintf("%.0f%%", s.Config.Volume*100)),
	)

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "
	if width <= 0 {
		width = 80
	}
	return barBg.Width(width).Render(content)
}

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#bbf7d0")).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	echoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))
)
