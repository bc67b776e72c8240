package app

import (
	"math"
	"time"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/ayusman/holdsense/internal/hold"
)

// ErrNotTracked is returned when calibrating without a tracked user.
var ErrNotTracked = errors.New("no user tracked")

const (
	// idleSpeedFactor slows the follow speed while nothing is held.
	idleSpeedFactor = 0.6

	// defaultFilterStep is the Kalman time step used before a real tick delta is known.
	defaultFilterStep = 1.0 / 30

	// filterStepDrift is the relative change in tick delta that rebuilds the Kalman filter.
	filterStepDrift = 0.5
)

// FilterKind selects how the controller follows its target.
type FilterKind string

const (
	FilterLerp   FilterKind = "lerp"
	FilterKalman FilterKind = "kalman"
)

// ControllerConfig maps the hold center into control space.
type ControllerConfig struct {
	CoordinateScale float64    `json:"coordinate_scale"`
	HorizontalRange float64    `json:"horizontal_range"`
	VerticalRange   float64    `json:"vertical_range"`
	SmoothingSpeed  float64    `json:"smoothing_speed"`
	Filter          FilterKind `json:"filter"`
}

// DefaultControllerConfig returns the default mapping. Vertical movement is disabled.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		CoordinateScale: 5,
		HorizontalRange: 8,
		VerticalRange:   0,
		SmoothingSpeed:  12,
		Filter:          FilterLerp,
	}
}

// Validate reports the first unusable value.
func (c ControllerConfig) Validate() error {
	switch {
	case c.CoordinateScale <= 0:
		return errors.Errorf("coordinate scale must be positive, got %g", c.CoordinateScale)
	case c.HorizontalRange <= 0:
		return errors.Errorf("horizontal range must be positive, got %g", c.HorizontalRange)
	case c.VerticalRange < 0:
		return errors.Errorf("vertical range must not be negative, got %g", c.VerticalRange)
	case c.SmoothingSpeed <= 0:
		return errors.Errorf("smoothing speed must be positive, got %g", c.SmoothingSpeed)
	case c.Filter != FilterLerp && c.Filter != FilterKalman:
		return errors.Errorf("unknown filter %q", string(c.Filter))
	}
	return nil
}

// Feedback is the colour state shown to the user.
type Feedback int

const (
	FeedbackNotDetected Feedback = iota
	FeedbackIdle
	FeedbackBothHandsVisible
	FeedbackHolding
)

func (f Feedback) String() string {
	switch f {
	case FeedbackNotDetected:
		return "not_detected"
	case FeedbackIdle:
		return "idle"
	case FeedbackBothHandsVisible:
		return "both_hands_visible"
	case FeedbackHolding:
		return "holding"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f Feedback) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// FeedbackFor derives the feedback state from one tick's output.
func FeedbackFor(out hold.Output) Feedback {
	switch {
	case !out.Tracked:
		return FeedbackNotDetected
	case out.Holding:
		return FeedbackHolding
	case out.Diagnostics.Resolution == hold.ResolvedMidpoint:
		return FeedbackBothHandsVisible
	default:
		return FeedbackIdle
	}
}

// ControlPoint is a position in control space.
type ControlPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offsets are the calibrated zero point in sensor space.
type Offsets struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Controller follows the smoothed hold center in control space.
// It is not safe for concurrent use.
type Controller struct {
	cfg      ControllerConfig
	offsets  Offsets
	position ControlPoint
	feedback Feedback
	kf       *kalman_filter.Kalman2D
	kfStep   float64
}

// NewController creates a Controller at the origin with zero offsets.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Config returns the controller configuration.
func (c *Controller) Config() ControllerConfig {
	return c.cfg
}

// SetConfig replaces the configuration. Changing the filter restarts it.
func (c *Controller) SetConfig(cfg ControllerConfig) {
	if cfg.Filter != c.cfg.Filter {
		c.kf = nil
	}
	c.cfg = cfg
}

// Target maps the smoothed center of out to the clamped control-space target.
func (c *Controller) Target(out hold.Output) ControlPoint {
	x := clamp((out.Center.X-c.offsets.X)*c.cfg.CoordinateScale, c.cfg.HorizontalRange)

	var y float64
	if c.cfg.VerticalRange > 0 {
		y = clamp((out.Center.Y-c.offsets.Y)*c.cfg.CoordinateScale, c.cfg.VerticalRange)
	}
	return ControlPoint{X: x, Y: y}
}

// Update moves the controller towards the target for out. Without a tracked
// user the position is kept.
func (c *Controller) Update(out hold.Output, dt time.Duration) (ControlPoint, error) {
	c.feedback = FeedbackFor(out)
	if !out.Tracked {
		return c.position, nil
	}

	target := c.Target(out)

	if c.cfg.Filter == FilterKalman {
		return c.updateKalman(target, dt)
	}

	speed := c.cfg.SmoothingSpeed
	if !out.Holding {
		speed *= idleSpeedFactor
	}
	t := speed * dt.Seconds()
	if t > 1 {
		t = 1
	}
	if t > 0 {
		c.position.X += (target.X - c.position.X) * t
		c.position.Y += (target.Y - c.position.Y) * t
	}
	return c.position, nil
}

func (c *Controller) updateKalman(target ControlPoint, dt time.Duration) (ControlPoint, error) {
	step := dt.Seconds()
	if step <= 0 {
		step = defaultFilterStep
	}

	if c.kf == nil {
		c.resetFilter(step, target)
		c.position = target
		return c.position, nil
	}
	if math.Abs(step-c.kfStep) > c.kfStep*filterStepDrift {
		c.resetFilter(step, c.position)
	}

	c.kf.Predict()
	if err := c.kf.Update(target.X, target.Y); err != nil {
		return c.position, errors.Wrap(err, "can't update controller filter")
	}
	x, y := c.kf.GetState()
	c.position = ControlPoint{
		X: clamp(x, c.cfg.HorizontalRange),
		Y: clamp(y, c.cfg.VerticalRange),
	}
	return c.position, nil
}

// resetFilter starts a constant-velocity filter at p. The target has no known
// acceleration, so the control input is zero.
func (c *Controller) resetFilter(step float64, p ControlPoint) {
	c.kf = kalman_filter.NewKalman2D(step, 0, 0, 2.0, 0.1, 0.1, kalman_filter.WithState2D(p.X, p.Y))
	c.kfStep = step
}

// Calibrate makes the current smoothed center the control-space origin.
// The vertical offset is only captured when vertical movement is enabled.
func (c *Controller) Calibrate(out hold.Output) (Offsets, error) {
	if !out.Tracked {
		return c.offsets, ErrNotTracked
	}

	c.offsets.X = out.Center.X
	if c.cfg.VerticalRange > 0 {
		c.offsets.Y = out.Center.Y
	}
	c.kf = nil
	return c.offsets, nil
}

// SetOffsets restores previously captured offsets.
func (c *Controller) SetOffsets(o Offsets) {
	c.offsets = o
	c.kf = nil
}

// Offsets returns the calibrated offsets.
func (c *Controller) Offsets() Offsets {
	return c.offsets
}

// Position returns the current control-space position.
func (c *Controller) Position() ControlPoint {
	return c.position
}

// Feedback returns the feedback state of the last update.
func (c *Controller) Feedback() Feedback {
	return c.feedback
}

// clamp limits v to [-limit, limit]. A zero limit yields zero.
func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
