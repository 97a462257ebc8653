// voicehooks speaks short notifications for editor activity.
//
// Usage:
//
//	voicehooks [-workspace dir]... [-addr 127.0.0.1:7717] [-backend auto|system|azure|none] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/voicehooks/internal/bridge"
	"github.com/hammamikhairi/voicehooks/internal/catalog"
	"github.com/hammamikhairi/voicehooks/internal/commands"
	"github.com/hammamikhairi/voicehooks/internal/config"
	"github.com/hammamikhairi/voicehooks/internal/display"
	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
	"github.com/hammamikhairi/voicehooks/internal/monitor"
	"github.com/hammamikhairi/voicehooks/internal/observability"
	"github.com/hammamikhairi/voicehooks/internal/voice"
	"github.com/hammamikhairi/voicehooks/internal/watcher"
)

// startupDelay gives the event sources a moment before the enable
// announcement so it is not cut short by the first burst of events.
const startupDelay = time.Second

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	_ = godotenv.Load()

	var workspaces multiFlag
	flag.Var(&workspaces, "workspace", "workspace folder to watch (repeatable)")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".voicehooks/voicehooks.log", "file to write logs to (use \"stderr\" to log to console)")
	configPath := flag.String("config", config.DefaultPath(), "settings file (empty keeps settings in memory)")
	addr := flag.String("addr", "127.0.0.1:7717", "editor bridge listen address (empty disables the bridge)")
	backendName := flag.String("backend", "auto", "speech backend: auto, system, azure or none")
	diskCache := flag.Bool("disk-cache", true, "persist synthesized audio to disk (reads from disk even when false)")
	cacheDir := flag.String("cache-dir", ".voicehooks/cache", "directory for the persistent audio cache")
	noTUI := flag.Bool("no-tui", false, "run without the interactive console")
	debounce := flag.Duration("debounce", voice.DefaultDebounce, "minimum gap between two utterances of the same key")
	speakTimeout := flag.Duration("speak-timeout", voice.DefaultSpeakTimeout, "upper bound on a single utterance, synthesis included")
	flag.Parse()

	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Logs go to a file by default so the console stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		if dir := filepath.Dir(*logFile); dir != "" && dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cancel, options{
		workspaces:   workspaces,
		configPath:   *configPath,
		addr:         *addr,
		backendName:  *backendName,
		logFile:      *logFile,
		cacheDir:     *cacheDir,
		diskCache:    *diskCache,
		debounce:     *debounce,
		speakTimeout: *speakTimeout,
		interactive:  !*noTUI && display.IsTerminal(),
	}, log); err != nil {
		log.Error("%v", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	workspaces   []string
	configPath   string
	addr         string
	backendName  string
	logFile      string
	cacheDir     string
	diskCache    bool
	debounce     time.Duration
	speakTimeout time.Duration
	interactive  bool
}

func run(ctx context.Context, cancel context.CancelFunc, opts options, log *logger.Logger) error {
	store := config.NewStore(opts.configPath, log.Named("config"))
	settings, err := store.Settings()
	if err != nil {
		log.Warn("settings unreadable, using defaults: %v", err)
		settings = config.Settings{Voice: domain.DefaultVoiceConfig()}
	}

	metrics := observability.NewMetrics("voicehooks")
	cat := catalog.New(settings.Utterances)

	backend, closeBackend, err := buildBackend(ctx, opts, cat, settings, log.Named("speech"))
	if err != nil {
		return err
	}
	defer closeBackend()

	notifier := voice.New(backend, store, log.Named("voice"),
		voice.WithRecorder(metrics),
		voice.WithCatalog(cat),
		voice.WithDebounce(opts.debounce),
		voice.WithSpeakTimeout(opts.speakTimeout),
	)
	metrics.SetEnabled(notifier.Enabled())
	notifier.OnEnabledChange(metrics.SetEnabled)

	// ── Event pipeline ──

	events := make(chan domain.Event, 64)

	var classifierOpts []monitor.ClassifierOption
	if settings.ClassifierKeywords != nil {
		classifierOpts = append(classifierOpts, monitor.WithKeywords(settings.ClassifierKeywords))
	}
	hubLog := log.Named("monitor")
	hub := monitor.NewHub(hubLog,
		monitor.HandlerFunc(metrics.ObserveEvent),
		// The classifier runs first: an accepted suggestion is the more
		// specific signal for the same text change.
		monitor.NewClassifier(notifier, hubLog, classifierOpts...),
		monitor.NewMonitor(notifier, hubLog),
	)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx, events)
	}()

	if len(opts.workspaces) > 0 || opts.configPath != "" {
		w, err := watcher.New(watcher.Config{
			Roots:            opts.workspaces,
			SettingsPath:     opts.configPath,
			SettingsSections: []string{config.Namespace},
			Exclude:          ownFiles(opts),
		}, log.Named("watcher"))
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		go w.Run(ctx)
		go forward(ctx, w.Events(), events)
	}

	// ── Surfaces ──

	var (
		ui        *display.UI
		messenger domain.Messenger
	)
	if opts.interactive {
		ui = display.NewUI(notifier)
		messenger = ui
	} else {
		messenger = display.NewCLIMessenger(os.Stdout, false, log.Named("messenger"))
	}
	cmds := commands.New(notifier, store, messenger, log.Named("commands"))

	if opts.addr != "" {
		srv := bridge.New(events, notifier, cmds, metrics, log.Named("bridge"))
		notifier.OnEnabledChange(func(bool) { srv.PublishStatus() })
		stop, err := serve(ctx, opts.addr, srv.Router(), log)
		if err != nil {
			return err
		}
		defer stop()
	}

	go func() {
		select {
		case <-time.After(startupDelay):
			notifier.Notify(domain.KeyExtensionEnable)
		case <-ctx.Done():
		}
	}()

	log.Info("voicehooks started (enabled=%t, workspaces=%v, bridge=%s)", notifier.Enabled(), opts.workspaces, opts.addr)

	if ui != nil {
		fmt.Println(display.RenderBanner())
		fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit. Click the status bar to toggle."))
		fmt.Println()

		c := &console{ui: ui, commands: cmds, status: notifier, log: log.Named("console")}
		go func() {
			ui.WaitReady()
			c.run(ctx)
			ui.Quit()
		}()
		if err := ui.Run(); err != nil {
			log.Error("display: %v", err)
		}
		cancel()
	} else {
		fmt.Printf("voicehooks listening (bridge=%s). Press Ctrl+C to stop.\n", opts.addr)
		<-ctx.Done()
	}

	<-hubDone
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	_ = notifier.Wait(waitCtx)
	log.Info("voicehooks stopped")
	return nil
}

// ownFiles lists the paths the daemon writes while running. Changes to
// them must not come back as workspace events.
func ownFiles(opts options) []string {
	var paths []string
	if opts.logFile != "" && opts.logFile != "stderr" {
		paths = append(paths, opts.logFile)
	}
	if opts.cacheDir != "" {
		paths = append(paths, opts.cacheDir)
	}
	return paths
}

// forward copies events from a source channel onto the hub channel until
// either side is done.
func forward(ctx context.Context, from <-chan domain.Event, to chan<- domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-from:
			if !ok {
				return
			}
			select {
			case to <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// serve starts the bridge HTTP server and returns a function that shuts it
// down.
func serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) (func(), error) {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("bridge listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Surface immediate bind failures instead of running without a bridge.
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("bridge on %s: %w", addr, err)
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("bridge shutdown: %v", err)
		}
	}, nil
}
