// Package config loads holdsense settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/hold"
)

// Source kinds.
const (
	SourceMock   = "mock"
	SourceBridge = "bridge"
	SourceReplay = "replay"
)

// Config is the resolved application configuration.
type Config struct {
	LogLevel string

	ServerAddr string
	StaticDir  string

	DBPath string

	FPS int

	SourceKind      string
	SourceCommand   string
	SourceArgs      []string
	SourceRecording string
	SourceLoop      bool

	PluginsDir     string
	PluginsTimeout time.Duration

	Detection       hold.Config
	DetectionPreset hold.Preset
	DebugLogs       bool

	Controller app.ControllerConfig

	TrayEnabled bool
}

// Load reads configuration from holdsense.{yaml,json} in configDir and sets
// default values. A missing file is not an error. Environment variables
// prefixed with HOLDSENSE_ override file values.
func Load(configDir string) error {
	def := hold.DefaultConfig()
	ctrl := app.DefaultControllerConfig()

	viper.SetDefault("logLevel", "info")

	viper.SetDefault("server.addr", "127.0.0.1:8080")
	viper.SetDefault("server.staticDir", "")

	viper.SetDefault("db.path", "")

	viper.SetDefault("pipeline.fps", 30)

	viper.SetDefault("source.kind", SourceMock)
	viper.SetDefault("source.command", "")
	viper.SetDefault("source.args", []string{})
	viper.SetDefault("source.recording", "")
	viper.SetDefault("source.loop", true)

	viper.SetDefault("plugins.dir", "")
	viper.SetDefault("plugins.timeout", "5s")

	viper.SetDefault("detection.preset", "")
	viper.SetDefault("detection.policy", def.Policy.String())
	viper.SetDefault("detection.maxHandDistance", def.MaxHandDistance)
	viper.SetDefault("detection.minHandHeight", def.MinHandHeight)
	viper.SetDefault("detection.acquireFrames", def.AcquireFrames)
	viper.SetDefault("detection.smoothingFactor", def.SmoothingFactor)
	viper.SetDefault("detection.useMemory", def.UseMemory)
	viper.SetDefault("detection.memoryRetention", def.MemoryRetention.String())
	viper.SetDefault("detection.preventJumps", def.PreventJumps)
	viper.SetDefault("detection.singleHandFallback", def.SingleHandFallback)
	viper.SetDefault("detection.debugLogs", false)

	viper.SetDefault("controller.coordinateScale", ctrl.CoordinateScale)
	viper.SetDefault("controller.horizontalRange", ctrl.HorizontalRange)
	viper.SetDefault("controller.verticalRange", ctrl.VerticalRange)
	viper.SetDefault("controller.smoothingSpeed", ctrl.SmoothingSpeed)
	viper.SetDefault("controller.filter", string(ctrl.Filter))

	viper.SetDefault("tray.enabled", true)

	viper.SetEnvPrefix("HOLDSENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("holdsense")
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// Current assembles a Config from the loaded values.
func Current() (Config, error) {
	det, err := Detection()
	if err != nil {
		return Config{}, err
	}

	ctrl, err := Controller()
	if err != nil {
		return Config{}, err
	}

	kind := strings.ToLower(viper.GetString("source.kind"))
	switch kind {
	case SourceMock, SourceBridge, SourceReplay:
	default:
		return Config{}, fmt.Errorf("unknown source kind %q", kind)
	}

	fps := viper.GetInt("pipeline.fps")
	if fps <= 0 {
		return Config{}, fmt.Errorf("pipeline.fps must be positive, got %d", fps)
	}

	return Config{
		LogLevel:        viper.GetString("logLevel"),
		ServerAddr:      viper.GetString("server.addr"),
		StaticDir:       viper.GetString("server.staticDir"),
		DBPath:          viper.GetString("db.path"),
		FPS:             fps,
		SourceKind:      kind,
		SourceCommand:   viper.GetString("source.command"),
		SourceArgs:      viper.GetStringSlice("source.args"),
		SourceRecording: viper.GetString("source.recording"),
		SourceLoop:      viper.GetBool("source.loop"),
		PluginsDir:      viper.GetString("plugins.dir"),
		PluginsTimeout:  viper.GetDuration("plugins.timeout"),
		Detection:       det,
		DetectionPreset: hold.Preset(viper.GetString("detection.preset")),
		DebugLogs:       viper.GetBool("detection.debugLogs"),
		Controller:      ctrl,
		TrayEnabled:     viper.GetBool("tray.enabled"),
	}, nil
}

// Detection returns the detection parameters. detection.smoothing, a 0-1
// knob, overrides detection.smoothingFactor when set. A configured preset is
// applied on top of the individual detection keys.
func Detection() (hold.Config, error) {
	policy, err := hold.ParsePolicy(viper.GetString("detection.policy"))
	if err != nil {
		return hold.Config{}, err
	}

	cfg := hold.Config{
		Policy:             policy,
		MaxHandDistance:    viper.GetFloat64("detection.maxHandDistance"),
		MinHandHeight:      viper.GetFloat64("detection.minHandHeight"),
		AcquireFrames:      viper.GetInt("detection.acquireFrames"),
		SmoothingFactor:    viper.GetFloat64("detection.smoothingFactor"),
		UseMemory:          viper.GetBool("detection.useMemory"),
		MemoryRetention:    viper.GetDuration("detection.memoryRetention"),
		PreventJumps:       viper.GetBool("detection.preventJumps"),
		SingleHandFallback: viper.GetBool("detection.singleHandFallback"),
	}

	if viper.IsSet("detection.smoothing") {
		cfg.SmoothingFactor = hold.SmoothingFactorFor(viper.GetFloat64("detection.smoothing"))
	}

	if preset := viper.GetString("detection.preset"); preset != "" {
		cfg, err = hold.Preset(preset).Apply(cfg)
		if err != nil {
			return hold.Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return hold.Config{}, fmt.Errorf("invalid detection config: %w", err)
	}
	return cfg, nil
}

// Controller returns the consumer mapping parameters.
func Controller() (app.ControllerConfig, error) {
	cfg := app.ControllerConfig{
		CoordinateScale: viper.GetFloat64("controller.coordinateScale"),
		HorizontalRange: viper.GetFloat64("controller.horizontalRange"),
		VerticalRange:   viper.GetFloat64("controller.verticalRange"),
		SmoothingSpeed:  viper.GetFloat64("controller.smoothingSpeed"),
		Filter:          app.FilterKind(strings.ToLower(viper.GetString("controller.filter"))),
	}
	if err := cfg.Validate(); err != nil {
		return app.ControllerConfig{}, fmt.Errorf("invalid controller config: %w", err)
	}
	return cfg, nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
