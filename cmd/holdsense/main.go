package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/config"
	"github.com/ayusman/holdsense/internal/detector"
	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/log"
	"github.com/ayusman/holdsense/internal/server"
	"github.com/ayusman/holdsense/internal/store"
	"github.com/ayusman/holdsense/internal/tray"
)

func main() {
	fmt.Println("holdsense - Object Holding Detection")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get home directory: %v\n", err)
		os.Exit(1)
	}

	dataDir := filepath.Join(homeDir, ".holdsense")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.Load(dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Current()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)

	if err := run(cfg, dataDir); err != nil {
		log.Error("holdsense failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, dataDir string) error {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "holdsense.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	src, err := buildSource(cfg, st)
	if err != nil {
		return err
	}

	pluginDir := cfg.PluginsDir
	if pluginDir == "" {
		pluginDir = filepath.Join(dataDir, "plugins")
	}

	application := app.New(app.Config{
		Store:         st,
		Source:        src,
		PluginDir:     pluginDir,
		PluginTimeout: cfg.PluginsTimeout,
		FPS:           cfg.FPS,
		Detection:     cfg.Detection,
		Controller:    cfg.Controller,
		DebugLogs:     cfg.DebugLogs,
	})

	if err := application.DiscoverPlugins(); err != nil {
		log.Warn("plugin discovery failed", "dir", pluginDir, "err", err)
	}

	if err := application.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer application.Stop()

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Runtime:   application,
	})
	defer srv.Close()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.ServerAddr, "source", cfg.SourceKind)
		serveErr <- srv.ListenAndServe(cfg.ServerAddr)
	}()

	if cfg.TrayEnabled {
		return runTray(application, cfg.ServerAddr, serveErr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// buildSource creates the tracking source selected by source.kind.
func buildSource(cfg config.Config, st *store.Store) (detector.Source, error) {
	switch cfg.SourceKind {
	case config.SourceBridge:
		dc := detector.DefaultConfig()
		if cfg.SourceCommand != "" {
			dc.Command = cfg.SourceCommand
		}
		if len(cfg.SourceArgs) > 0 {
			dc.Args = cfg.SourceArgs
		}
		return detector.NewBridgeSource(dc)

	case config.SourceReplay:
		bodies, err := loadReplay(cfg.SourceRecording, st)
		if err != nil {
			return nil, err
		}
		log.Info("replaying recording", "recording", cfg.SourceRecording, "frames", len(bodies), "loop", cfg.SourceLoop)
		return detector.NewReplaySource(bodies, cfg.SourceLoop), nil

	default:
		src := detector.NewMockSource()
		src.SetBody(detector.HoldingBody())
		return src, nil
	}
}

// loadReplay resolves ref as a stored recording ID, falling back to a JSON file path.
func loadReplay(ref string, st *store.Store) ([]detector.Body, error) {
	if ref == "" {
		return nil, errors.New("source.recording is required for replay")
	}

	bodies, err := st.Recordings().Bodies(ref)
	if err == nil {
		return bodies, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load recording %s: %w", ref, err)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("recording %s not found: %w", ref, err)
	}
	defer f.Close()

	return detector.ReadBodies(f)
}

// runTray blocks in the system tray until Quit is chosen or the server fails.
func runTray(application *app.App, addr string, serveErr <-chan error) error {
	t := tray.New(application.IsEnabled())

	t.OnToggle(application.SetEnabled)
	t.OnRecalibrate(func() {
		if _, err := application.Recalibrate(); err != nil {
			log.Warn("recalibrate failed", "err", err)
		}
	})
	t.OnPreset(func(p hold.Preset) {
		if err := application.ApplyPreset(p); err != nil {
			log.Warn("apply preset failed", "preset", string(p), "err", err)
		}
	})
	t.OnSettings(func() {
		if err := openBrowser(settingsURL(addr)); err != nil {
			log.Warn("failed to open settings", "err", err)
		}
	})

	application.OnTransition(func(_ string, st app.Status) {
		t.SetStatus(st)
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				t.SetStatus(application.Status())
			}
		}
	}()

	failed := make(chan error, 1)
	go func() {
		err := <-serveErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		t.Quit()
	}()

	t.Run()

	select {
	case err := <-failed:
		return fmt.Errorf("server failed: %w", err)
	default:
		return nil
	}
}

func settingsURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
