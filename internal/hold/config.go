package hold

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ReleaseFrames is the number of consecutive non-detections that clears the holding state.
	ReleaseFrames = 2

	// ForwardTolerance is how far (metres) a hand may sit behind the spine-mid plane
	// and still count as in front of the body.
	ForwardTolerance = 0.1

	// NoHandsGraceRatio is the fraction of the retention window during which the
	// permissive policy keeps reporting a hold with no hands tracked. Memory
	// validity uses the full window.
	NoHandsGraceRatio = 0.5
)

// Rate multipliers applied to SmoothingFactor × Δt seconds.
const (
	holdingRateScale = 10.0
	releaseRateScale = 5.0
	driftRateScale   = 3.0
)

// Policy selects how the raw per-frame holding predicate is evaluated.
type Policy int

const (
	// PolicyPermissive only looks at which hands are tracked (plus memory).
	PolicyPermissive Policy = iota
	// PolicyStrict checks distance, height, grip and forward position.
	PolicyStrict
)

func (p Policy) String() string {
	switch p {
	case PolicyPermissive:
		return "permissive"
	case PolicyStrict:
		return "strict"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "permissive" or "strict".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "permissive", "easy":
		return PolicyPermissive, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return 0, fmt.Errorf("unknown detection policy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Config holds the detection parameters. It may be replaced between ticks.
// In JSON, MemoryRetention is written as seconds and read from either seconds
// or a duration string such as "1500ms".
type Config struct {
	Policy             Policy        `json:"policy"`
	MaxHandDistance    float64       `json:"max_hand_distance"`
	MinHandHeight      float64       `json:"min_hand_height"`
	AcquireFrames      int           `json:"acquire_frames"`
	SmoothingFactor    float64       `json:"smoothing_factor"`
	UseMemory          bool          `json:"use_memory"`
	MemoryRetention    time.Duration `json:"memory_retention"`
	PreventJumps       bool          `json:"prevent_jumps"`
	SingleHandFallback bool          `json:"single_hand_fallback"`
}

// MarshalJSON implements json.Marshaler.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		MemoryRetention float64 `json:"memory_retention"`
	}{plain(c), c.MemoryRetention.Seconds()})
}

// UnmarshalJSON implements json.Unmarshaler. Fields missing from data keep
// their current values.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		MemoryRetention json.RawMessage `json:"memory_retention"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.MemoryRetention) == 0 || string(aux.MemoryRetention) == "null" {
		return nil
	}
	d, err := parseSeconds(aux.MemoryRetention)
	if err != nil {
		return fmt.Errorf("memory_retention: %w", err)
	}
	c.MemoryRetention = d
	return nil
}

func parseSeconds(raw json.RawMessage) (time.Duration, error) {
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("want seconds or a duration string")
	}
	return time.ParseDuration(s)
}

// DefaultConfig returns the default detection parameters.
func DefaultConfig() Config {
	return Config{
		Policy:             PolicyPermissive,
		MaxHandDistance:    0.4,
		MinHandHeight:      -0.2,
		AcquireFrames:      3,
		SmoothingFactor:    0.8,
		UseMemory:          true,
		MemoryRetention:    2 * time.Second,
		PreventJumps:       true,
		SingleHandFallback: true,
	}
}

// Validate reports configuration values the detector cannot work with.
// The detector itself never calls it; configuring layers should.
func (c Config) Validate() error {
	var errs []error
	if c.Policy != PolicyPermissive && c.Policy != PolicyStrict {
		errs = append(errs, fmt.Errorf("unknown policy %d", int(c.Policy)))
	}
	if c.MaxHandDistance <= 0 {
		errs = append(errs, errors.New("max hand distance must be positive"))
	}
	if c.AcquireFrames < 1 {
		errs = append(errs, errors.New("acquire frames must be at least 1"))
	}
	if c.SmoothingFactor < 0 || c.SmoothingFactor > 1 {
		errs = append(errs, errors.New("smoothing factor must be within [0, 1]"))
	}
	if c.UseMemory && c.MemoryRetention <= 0 {
		errs = append(errs, errors.New("memory retention must be positive when memory is enabled"))
	}
	return errors.Join(errs...)
}

// Preset names a bundle of detection settings.
type Preset string

const (
	PresetVeryEasy         Preset = "very_easy"
	PresetVeryEasyNoMemory Preset = "very_easy_no_memory"
	PresetSensitive        Preset = "sensitive"
	PresetNormal           Preset = "normal"
	PresetStrict           Preset = "strict"
)

// Presets lists every preset in menu order.
func Presets() []Preset {
	return []Preset{PresetVeryEasy, PresetVeryEasyNoMemory, PresetSensitive, PresetNormal, PresetStrict}
}

// Label returns a human readable preset name.
func (p Preset) Label() string {
	switch p {
	case PresetVeryEasy:
		return "Very easy"
	case PresetVeryEasyNoMemory:
		return "Very easy (no memory)"
	case PresetSensitive:
		return "Sensitive"
	case PresetNormal:
		return "Normal"
	case PresetStrict:
		return "Strict"
	default:
		return string(p)
	}
}

// Apply returns cfg with the preset's fields overwritten. Fields the preset
// does not mention keep their current values.
func (p Preset) Apply(cfg Config) (Config, error) {
	switch p {
	case PresetVeryEasy:
		cfg.Policy = PolicyPermissive
		cfg.UseMemory = true
		cfg.AcquireFrames = 2
		cfg.MemoryRetention = 2 * time.Second
		cfg.PreventJumps = true
		cfg.SingleHandFallback = true
	case PresetVeryEasyNoMemory:
		cfg.Policy = PolicyPermissive
		cfg.UseMemory = false
		cfg.AcquireFrames = 2
		cfg.PreventJumps = false
		cfg.SingleHandFallback = false
	case PresetSensitive:
		cfg.Policy = PolicyStrict
		cfg.MaxHandDistance = 0.6
		cfg.MinHandHeight = -0.4
		cfg.AcquireFrames = 2
	case PresetNormal:
		cfg.Policy = PolicyStrict
		cfg.MaxHandDistance = 0.4
		cfg.MinHandHeight = -0.2
		cfg.AcquireFrames = 3
	case PresetStrict:
		cfg.Policy = PolicyStrict
		cfg.MaxHandDistance = 0.3
		cfg.MinHandHeight = 0.0
		cfg.AcquireFrames = 5
	default:
		return cfg, fmt.Errorf("unknown preset %q", string(p))
	}
	return cfg, nil
}

// Smoothing knob presets, in [0, 1].
const (
	SmoothingStable     = 0.7
	SmoothingResponsive = 0.3
	SmoothingGaming     = 0.5
)

// SmoothingFactorFor maps a 0-1 smoothing knob to a SmoothingFactor.
func SmoothingFactorFor(smoothing float64) float64 {
	return lerp(0.1, 0.9, clamp01(smoothing))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

