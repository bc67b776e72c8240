// Package app runs the holdsense pipeline: it polls the tracking source,
// advances the hold detector, drives the controller, records sessions and
// fires plugin hooks on hold transitions.
package app

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/holdsense/internal/detector"
	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/log"
	"github.com/ayusman/holdsense/internal/plugin"
	"github.com/ayusman/holdsense/internal/store"
)

// DefaultFPS is the tick rate when Config.FPS is not set.
const DefaultFPS = 30

var (
	// ErrNoStore is returned by operations that need persistence when none is configured.
	ErrNoStore = errors.New("no store configured")

	// ErrRecordingActive is returned when starting a second recording.
	ErrRecordingActive = errors.New("recording already in progress")

	// ErrNotRecording is returned when stopping without an active recording.
	ErrNotRecording = errors.New("no recording in progress")
)

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	Source        detector.Source
	PluginDir     string
	PluginTimeout time.Duration
	FPS           int
	Detection     hold.Config
	Controller    ControllerConfig
	DebugLogs     bool
}

// Status is the published result of the latest tick.
type Status struct {
	Output    hold.Output   `json:"output"`
	Body      detector.Body `json:"body"`
	Position  ControlPoint  `json:"position"`
	Feedback  Feedback      `json:"feedback"`
	Offsets   Offsets       `json:"offsets"`
	Enabled   bool          `json:"enabled"`
	Recording bool          `json:"recording"`
	ProfileID string        `json:"profile_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// TransitionFunc is called after the holding state changes.
type TransitionFunc func(event string, status Status)

// App is the main application that orchestrates hold detection and plugin execution.
type App struct {
	config      Config
	source      detector.Source
	detector    *hold.Detector
	controller  *Controller
	pluginMgr   *plugin.Manager
	pluginExec  *plugin.Executor
	recorder    *recorder
	status      Status
	profileID   string
	transitions []TransitionFunc
	lastTick    time.Time
	enabled     bool
	mu          sync.RWMutex
	stopCh      chan struct{}
	doneCh      chan struct{}
	hooks       sync.WaitGroup
}

// New creates a new App instance with the given configuration. Saved
// calibration, active profile and enabled state are restored from the store.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.PluginTimeout <= 0 {
		config.PluginTimeout = 5 * time.Second
	}

	a := &App{
		config:     config,
		source:     config.Source,
		detector:   hold.NewDetector(config.Detection),
		controller: NewController(config.Controller),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(config.PluginTimeout),
		enabled:    true,
	}
	a.status = Status{Output: a.detector.Output(), Enabled: true}

	a.restore()
	return a
}

func (a *App) restore() {
	if a.config.Store == nil {
		return
	}

	if c, err := a.config.Store.Calibrations().Latest(); err == nil {
		a.controller.SetOffsets(Offsets{X: c.OffsetX, Y: c.OffsetY})
		a.status.Offsets = a.controller.Offsets()
		log.Info("restored calibration", "offsetX", c.OffsetX, "offsetY", c.OffsetY)
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to load calibration", "err", err)
	}

	settings := a.config.Store.Settings()

	if id, err := settings.Get(store.SettingActiveProfile); err == nil {
		p, err := a.config.Store.Profiles().GetByID(id)
		switch {
		case err == nil && p.Config.Validate() == nil:
			a.detector.SetConfig(p.Config)
			a.profileID = p.ID
			a.status.ProfileID = p.ID
			log.Info("restored profile", "profile", p.Name)
		case err != nil:
			log.Warn("failed to load active profile", "id", id, "err", err)
		default:
			log.Warn("active profile has invalid config", "profile", p.Name)
		}
	}

	if v, err := settings.Get(store.SettingEnabled); err == nil {
		if enabled, err := strconv.ParseBool(v); err == nil {
			a.enabled = enabled
			a.status.Enabled = enabled
		}
	}
}

// SetEnabled enables or disables hold detection. Disabling resets the
// detector and reports a release if a hold was active.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.status.Enabled = enabled
	var dropped hold.Output
	if !enabled {
		dropped = a.resetLocked()
	}
	a.mu.Unlock()

	if dropped.Holding {
		a.notifyRelease(dropped)
	}

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingEnabled, strconv.FormatBool(enabled)); err != nil {
			log.Warn("failed to persist enabled state", "err", err)
		}
	}
}

// IsEnabled returns whether hold detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetSource replaces the tracking source. The detector is reset.
func (a *App) SetSource(src detector.Source) {
	a.mu.Lock()
	a.source = src
	dropped := a.resetLocked()
	a.mu.Unlock()

	if dropped.Holding {
		a.notifyRelease(dropped)
	}
}

// OnTransition registers fn to be called on every hold transition.
func (a *App) OnTransition(fn TransitionFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transitions = append(a.transitions, fn)
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if a.source == nil {
		return fmt.Errorf("no tracking source configured")
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.lastTick = time.Time{}
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Info("detection pipeline started", "fps", a.config.FPS)
	return nil
}

// Stop halts the detection pipeline, waits for running plugin hooks and
// closes the source.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	a.hooks.Wait()

	a.mu.RLock()
	src := a.source
	a.mu.RUnlock()
	if src != nil {
		if err := src.Close(); err != nil {
			log.Warn("error closing source", "err", err)
		}
	}

	log.Info("detection pipeline stopped")
}

// Status returns the result of the latest tick.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Debug returns the condition breakdown for the latest tick.
func (a *App) Debug() string {
	a.mu.RLock()
	st := a.status
	cfg := a.detector.Config()
	a.mu.RUnlock()

	return Report(st.Output, cfg, st.Body) +
		fmt.Sprintf("control position: %.2f\n", st.Position.X) +
		fmt.Sprintf("calibrated offset: (%.2f, %.2f)\n", st.Offsets.X, st.Offsets.Y)
}

// DetectionConfig returns the active detection parameters.
func (a *App) DetectionConfig() hold.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector.Config()
}

// SetDetectionConfig validates and applies cfg from the next tick. It clears
// the active profile.
func (a *App) SetDetectionConfig(cfg hold.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.detector.SetConfig(cfg)
	a.profileID = ""
	a.status.ProfileID = ""
	a.mu.Unlock()

	a.clearActiveProfile()
	log.Info("detection config updated", "policy", cfg.Policy.String())
	return nil
}

// ApplyPreset overlays a named preset on the active detection parameters.
func (a *App) ApplyPreset(p hold.Preset) error {
	cfg, err := p.Apply(a.DetectionConfig())
	if err != nil {
		return err
	}
	if err := a.SetDetectionConfig(cfg); err != nil {
		return err
	}
	log.Info("preset applied", "preset", string(p))
	return nil
}

// ApplyProfile loads a stored profile and makes it active.
func (a *App) ApplyProfile(id string) error {
	if a.config.Store == nil {
		return ErrNoStore
	}

	p, err := a.config.Store.Profiles().GetByID(id)
	if err != nil {
		return err
	}
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}

	a.mu.Lock()
	a.detector.SetConfig(p.Config)
	a.profileID = p.ID
	a.status.ProfileID = p.ID
	a.mu.Unlock()

	if err := a.config.Store.Settings().Set(store.SettingActiveProfile, p.ID); err != nil {
		log.Warn("failed to persist active profile", "err", err)
	}
	log.Info("profile applied", "profile", p.Name)
	return nil
}

// ActiveProfile returns the ID of the applied profile, if any.
func (a *App) ActiveProfile() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profileID
}

func (a *App) clearActiveProfile() {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().Delete(store.SettingActiveProfile); err != nil {
		log.Warn("failed to clear active profile", "err", err)
	}
}

// ControllerConfig returns the controller mapping parameters.
func (a *App) ControllerConfig() ControllerConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.controller.Config()
}

// SetControllerConfig validates and applies the controller mapping.
func (a *App) SetControllerConfig(cfg ControllerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.controller.SetConfig(cfg)
	return nil
}

// Reset drops the detector state as if the user had been lost.
func (a *App) Reset() {
	a.mu.Lock()
	dropped := a.resetLocked()
	a.mu.Unlock()

	if dropped.Holding {
		a.notifyRelease(dropped)
	}
}

// resetLocked resets the detector and returns the output it had before.
// a.mu must be held.
func (a *App) resetLocked() hold.Output {
	prev := a.detector.Output()
	a.detector.Reset()
	a.status.Output = a.detector.Output()
	return prev
}

// notifyRelease reports a hold dropped outside the tick loop.
func (a *App) notifyRelease(prev hold.Output) {
	a.mu.RLock()
	st := a.status
	transitions := append([]TransitionFunc(nil), a.transitions...)
	a.mu.RUnlock()

	log.Info("hold released", "center", prev.Center, "reason", "reset")
	for _, fn := range transitions {
		fn(plugin.EventHoldReleased, st)
	}
	a.dispatch(plugin.EventHoldReleased, prev, time.Now())
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Store returns the configured store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}
