package speech

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechBackend = (*System)(nil)

// runFunc executes name with args, feeding stdin, and returns combined
// output.
type runFunc func(ctx context.Context, name string, args []string, stdin string) ([]byte, error)

// SystemOption configures the System backend.
type SystemOption func(*System)

// WithLinuxVoice sets the espeak voice used on Linux. Empty keeps
// DefaultLinuxVoice.
func WithLinuxVoice(voice string) SystemOption {
	return func(s *System) {
		if voice != "" {
			s.linuxVoice = voice
		}
	}
}

// System speaks through the operating system's command-line synthesizer:
// say on macOS, espeak-ng or espeak on Linux, System.Speech via
// PowerShell on Windows.
//
// The utterance is always written to the process's stdin. It never
// appears on the command line, so event text cannot inject arguments or
// shell syntax.
type System struct {
	goos       string
	lookPath   func(string) (string, error)
	run        runFunc
	linuxVoice string
	log        *logger.Logger
}

// NewSystem creates a backend for the current platform.
func NewSystem(log *logger.Logger, opts ...SystemOption) *System {
	s := &System{
		goos:       runtime.GOOS,
		lookPath:   exec.LookPath,
		run:        runCommand,
		linuxVoice: DefaultLinuxVoice,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a synthesizer was found on this platform.
func (s *System) Available() bool {
	_, _, err := s.command(domain.DefaultVoiceConfig())
	return err == nil
}

// Speak runs the synthesizer and blocks until it exits.
func (s *System) Speak(ctx context.Context, text string, cfg domain.VoiceConfig) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	name, args, err := s.command(cfg)
	if err != nil {
		return err
	}

	s.log.Debug("system tts: %s %s (%d chars)", filepath.Base(name), strings.Join(args, " "), len(text))

	out, err := s.run(ctx, name, args, text)
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			return fmt.Errorf("%s failed: %w: %s", filepath.Base(name), err, detail)
		}
		return fmt.Errorf("%s failed: %w", filepath.Base(name), err)
	}
	return nil
}

// command returns the executable and argument list for cfg.
func (s *System) command(cfg domain.VoiceConfig) (string, []string, error) {
	switch s.goos {
	case "darwin":
		path, err := s.lookPath("say")
		if err != nil {
			break
		}
		var args []string
		if cfg.VoiceName != "" {
			args = append(args, "-v", cfg.VoiceName)
		}
		args = append(args, "-r", strconv.Itoa(cfg.Rate), "-f", "-")
		return path, args, nil

	case "windows":
		path, err := s.lookPath("powershell.exe")
		if err != nil {
			break
		}
		return path, []string{"-NoProfile", "-NonInteractive", "-Command", powershellScript(cfg)}, nil

	default:
		// Linux and the BSDs: prefer espeak-ng, fall back to espeak.
		for _, bin := range []string{"espeak-ng", "espeak"} {
			path, err := s.lookPath(bin)
			if err != nil {
				continue
			}
			args := []string{
				"-v", s.linuxVoice,
				"-s", strconv.Itoa(cfg.Rate),
				"-a", strconv.Itoa(espeakAmplitude(cfg.Volume)),
				"--stdin",
			}
			return path, args, nil
		}
	}
	return "", nil, fmt.Errorf("%w: no synthesizer found for %s", domain.ErrBackendUnavailable, s.goos)
}

// espeakAmplitude maps volume 0..1 onto espeak's amplitude, where 100 is
// the synthesizer's normal loudness.
func espeakAmplitude(volume float64) int {
	return int(volume*100 + 0.5)
}

// powershellScript builds a System.Speech script that reads the utterance
// from stdin. Only config values are embedded; the voice name is quoted
// as a PowerShell literal.
func powershellScript(cfg domain.VoiceConfig) string {
	var b strings.Builder
	b.WriteString("Add-Type -AssemblyName System.Speech; ")
	b.WriteString("$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ")
	if cfg.VoiceName != "" {
		fmt.Fprintf(&b, "try { $s.SelectVoice('%s') } catch { }; ", escapePowerShell(cfg.VoiceName))
	}
	fmt.Fprintf(&b, "$s.Rate = %d; ", windowsRate(cfg.Rate))
	fmt.Fprintf(&b, "$s.Volume = %d; ", int(cfg.Volume*100+0.5))
	b.WriteString("$s.Speak([Console]::In.ReadToEnd()); $s.Dispose()")
	return b.String()
}

// windowsRate maps words per minute onto SpeechSynthesizer.Rate (-10..10),
// 20 wpm per step around the 200 wpm baseline.
func windowsRate(wpm int) int {
	r := (wpm - baselineRate) / 20
	if r < -10 {
		return -10
	}
	if r > 10 {
		return 10
	}
	return r
}

// escapePowerShell doubles single quotes for use inside a '...' literal.
func escapePowerShell(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func runCommand(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // name resolved through LookPath, text goes to stdin
	cmd.Stdin = strings.NewReader(stdin)
	return cmd.CombinedOutput()
}
