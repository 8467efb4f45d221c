package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/KDSPL/SaveMyEyes/internal/config"
	"github.com/KDSPL/SaveMyEyes/internal/dimmer"
	"github.com/KDSPL/SaveMyEyes/internal/hotkeys"
	"github.com/KDSPL/SaveMyEyes/internal/ipc"
	"github.com/KDSPL/SaveMyEyes/internal/platform"
	"github.com/KDSPL/SaveMyEyes/internal/watcher"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: savemyeyes daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: savemyeyes daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "show":
		os.Exit(runShow(os.Args[2:]))
	case "hide":
		os.Exit(runHide(os.Args[2:]))
	case "toggle":
		os.Exit(runToggle(os.Args[2:]))
	case "set":
		os.Exit(runSet(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "adjust":
		os.Exit(runAdjust(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: savemyeyes <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the dimming daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  show                Enable dimming")
	fmt.Fprintln(w, "  hide                Disable dimming")
	fmt.Fprintln(w, "  toggle              Toggle dimming on/off")
	fmt.Fprintln(w, "  set                 Set opacity, globally or per display")
	fmt.Fprintln(w, "  adjust              Adjust opacity interactively")
	fmt.Fprintln(w, "  monitors            List connected displays")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'savemyeyes <command> --help' for command-specific options.")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// statePersister writes dimming state back to the config file so the next
// daemon start restores it.
type statePersister struct {
	mu     sync.Mutex
	cfg    *config.Config
	logger *slog.Logger
}

func (p *statePersister) persist(snap dimmer.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg.Enabled = snap.Enabled
	p.cfg.Opacity = snap.GlobalOpacity
	p.cfg.MultiMonitor = snap.MultiMonitor
	p.cfg.PerDisplayOpacity = snap.PerMonitor
	if snap.LastOpacity > 0 {
		p.cfg.LastOpacity = snap.LastOpacity
	}

	if err := p.cfg.Save(); err != nil {
		p.logger.Warn("failed to persist dimming state", "error", err)
	}
}

// replace swaps in a freshly loaded config so later persists keep the
// file's non-state fields intact.
func (p *statePersister) replace(cfg *config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

func snapshotFromConfig(cfg *config.Config) dimmer.Snapshot {
	return dimmer.Snapshot{
		Enabled:       cfg.Enabled,
		GlobalOpacity: cfg.Opacity,
		MultiMonitor:  cfg.MultiMonitor,
		PerMonitor:    cfg.PerDisplayOpacity,
		LastOpacity:   cfg.LastOpacity,
	}
}

func snapshotsEqual(a, b dimmer.Snapshot) bool {
	if a.Enabled != b.Enabled || a.GlobalOpacity != b.GlobalOpacity ||
		a.MultiMonitor != b.MultiMonitor || a.LastOpacity != b.LastOpacity {
		return false
	}
	if len(a.PerMonitor) != len(b.PerMonitor) {
		return false
	}
	for name, opacity := range a.PerMonitor {
		if b.PerMonitor[name] != opacity {
			return false
		}
	}
	return true
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "opacity", cfg.Opacity, "multi_monitor", cfg.MultiMonitor)

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		os.Exit(1)
	}
	defer backend.Disconnect()

	persister := &statePersister{cfg: cfg, logger: logger}
	store := dimmer.NewStore(snapshotFromConfig(cfg), persister.persist)

	// The compositor effect operates below the capture pipeline, so when the
	// user wants dimming visible in captures only overlays will do.
	engine := dimmer.NewEngine(dimmer.EngineConfig{
		Backend:      backend,
		Store:        store,
		Capture:      dimmer.NewExclusionPolicy(logger, cfg.AllowCapture),
		Logger:       logger,
		ForceOverlay: cfg.ForceOverlay || cfg.AllowCapture,
	})

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()
	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(engineCtx)
	}()

	// Global hotkeys
	hotkeyHandler := hotkeys.NewHandler(backend, logger)
	step := cfg.OpacityStep
	err = hotkeyHandler.Register(cfg.HotkeyToggle, cfg.HotkeyIncrease, cfg.HotkeyDecrease, hotkeys.Bindings{
		Toggle:   func() { engine.Toggle() },
		Increase: func() { adjustByStep(engine, backend, step) },
		Decrease: func() { adjustByStep(engine, backend, -step) },
	})
	if err != nil {
		logger.Warn("failed to register hotkeys", "error", err)
	}

	// Platform notifications
	if err := backend.WatchForegroundChanges(func() { engine.NoteForegroundChange() }); err != nil {
		logger.Warn("failed to watch foreground changes; z-order re-assertion disabled", "error", err)
	}
	if err := backend.WatchScreenChanges(func() { engine.DisplayConfigurationChanged() }); err != nil {
		logger.Warn("failed to watch screen changes", "error", err)
	}

	// IPC server
	reloadChan := make(chan struct{}, 1)
	ipcServer, err := ipc.NewServer(engine, reloadChan, logger)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		os.Exit(1)
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		os.Exit(1)
	}
	defer ipcServer.Stop()

	// Config file hot reload
	if configPath, err := config.DefaultConfigPath(); err == nil {
		if mkErr := os.MkdirAll(filepath.Dir(configPath), 0755); mkErr != nil {
			logger.Warn("failed to create config directory", "error", mkErr)
		} else if cfgWatcher, wErr := watcher.New(configPath, logger); wErr != nil {
			logger.Warn("config watcher unavailable", "error", wErr)
		} else if wErr := cfgWatcher.Start(); wErr != nil {
			logger.Warn("failed to start config watcher", "error", wErr)
		} else {
			defer cfgWatcher.Stop()
			go func() {
				for range cfgWatcher.Changed() {
					select {
					case reloadChan <- struct{}{}:
					default:
					}
				}
			}()
		}
	}

	reload := func() {
		newCfg, err := config.Load()
		if err != nil {
			logger.Warn("config reload failed", "error", err)
			return
		}
		next := snapshotFromConfig(newCfg)
		// Our own state writes come back through the file watcher; an
		// unchanged snapshot means there is nothing to re-apply.
		if snapshotsEqual(store.Snapshot(), next) {
			return
		}
		if newCfg.HotkeyToggle != cfg.HotkeyToggle ||
			newCfg.HotkeyIncrease != cfg.HotkeyIncrease ||
			newCfg.HotkeyDecrease != cfg.HotkeyDecrease {
			logger.Info("hotkey changes take effect on daemon restart")
		}
		cfg = newCfg
		persister.replace(newCfg)
		logger.Info("config changed; re-applying dimming state")
		store.Update(next)
		engine.Refresh()
	}

	// Signal handling and reload loop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					reload()
				case os.Interrupt, syscall.SIGTERM:
					logger.Info("shutting down")
					engineCancel()
					<-engineDone
					ipcServer.Stop()
					backend.Quit()
					return
				}
			case <-reloadChan:
				reload()
			}
		}
	}()

	if cfg.Enabled {
		engine.Show()
	}

	logger.Info("savemyeyes daemon started")
	backend.EventLoop()
}

// adjustByStep nudges the opacity from a hotkey. In multi-monitor mode the
// display under the pointer is adjusted; otherwise the global opacity.
func adjustByStep(engine *dimmer.Engine, backend *platform.LinuxBackend, delta float64) {
	snap := engine.Store().Snapshot()
	if snap.MultiMonitor {
		if x, y, err := backend.PointerPosition(); err == nil {
			idx := engine.MonitorIndexAt(x, y)
			names := engine.MonitorNames()
			if idx >= 0 && idx < len(names) {
				current, ok := snap.PerMonitor[names[idx]]
				if !ok {
					current = snap.GlobalOpacity
				}
				engine.SetMonitorOpacity(names[idx], current+delta)
				return
			}
		}
	}
	engine.SetOpacity(snap.GlobalOpacity + delta)
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: savemyeyes status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("visible:        %v\n", status.Visible)
	fmt.Printf("mode:           %s\n", status.Mode)
	fmt.Printf("opacity:        %.2f\n", status.Opacity)
	fmt.Printf("multi_monitor:  %v\n", status.MultiMonitor)
	fmt.Printf("surface_count:  %d\n", status.SurfaceCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	return 0
}

func runShow(args []string) int {
	if err := simpleCommand(args, "show", "Enable dimming.", ipc.NewClient().Show); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runHide(args []string) int {
	if err := simpleCommand(args, "hide", "Disable dimming.", ipc.NewClient().Hide); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runToggle(args []string) int {
	fs := flag.NewFlagSet("toggle", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: savemyeyes toggle")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	enabled, err := ipc.NewClient().Toggle()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if enabled {
		fmt.Println("dimming: on")
	} else {
		fmt.Println("dimming: off")
	}
	return 0
}

func simpleCommand(args []string, name, doc string, fn func() error) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: savemyeyes %s\n\n%s\n", name, doc)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("%s takes no arguments", name)
	}
	return fn()
}

func runSet(args []string) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	monitor := fs.String("monitor", "", "display name to set a per-display override (default: global)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: savemyeyes set [--monitor NAME] <opacity>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Set the dimming opacity (0.0-0.9). Out-of-range values are clamped.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	opacity, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid opacity %q\n", fs.Arg(0))
		return 2
	}

	client := ipc.NewClient()
	if *monitor == "" {
		err = client.SetOpacity(opacity)
	} else {
		err = client.SetMonitorOpacity(*monitor, opacity)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: savemyeyes monitors [--json]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	monitors, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(monitors); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	for _, m := range monitors.Monitors {
		fmt.Printf("%d: %s  %dx%d+%d+%d  opacity %.2f\n",
			m.ID, m.Name, m.Width, m.Height, m.X, m.Y, m.Opacity)
	}
	return 0
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  savemyeyes config validate")
	fmt.Fprintln(w, "  savemyeyes config print")
}

func runConfig(args []string) int {
	if len(args) == 0 {
		printConfigUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "validate":
		_, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config ok")
		return 0
	case "print":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		os.Stdout.Write(data)
		return 0
	case "help", "-h", "--help":
		printConfigUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage(os.Stderr)
		return 2
	}
}
