// Package hold turns per-tick skeleton samples into a debounced "object is
// being held" signal and a smoothed hold position.
package hold

// Detector carries State between ticks. It is not safe for concurrent use;
// drive it from a single loop.
type Detector struct {
	cfg   Config
	state State
	out   Output
}

// NewDetector creates a Detector in the reset state.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg: cfg,
		out: resetOutput(),
	}
}

// Tick advances the detector by one frame and returns its output.
func (d *Detector) Tick(in Input) Output {
	d.state, d.out = Step(d.state, in, d.cfg)
	return d.out
}

// Reset drops all state, as if the user had been lost.
func (d *Detector) Reset() {
	d.state = State{}
	d.out = resetOutput()
}

// SetConfig replaces the configuration. It applies from the next tick.
func (d *Detector) SetConfig(cfg Config) {
	d.cfg = cfg
}

// Config returns the current configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// State returns a copy of the internal state.
func (d *Detector) State() State {
	return d.state
}

// Output returns the output of the last tick.
func (d *Detector) Output() Output {
	return d.out
}
