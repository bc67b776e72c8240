package hold

import (
	"encoding/json"
	"time"

	"github.com/ayusman/holdsense/internal/detector"
)

// State persists across ticks. The zero value is the reset state.
type State struct {
	Debounce
	Smoothed detector.Point3D `json:"smoothed"`
	Memory   Memory           `json:"memory"`
}

// Input is one tick's worth of sensor data and time.
type Input struct {
	Body  detector.Body
	Now   time.Time
	Delta time.Duration
}

// Diagnostics are read-only observability fields. MemoryAge is -1 when no
// memory exists; in JSON it is written in seconds.
type Diagnostics struct {
	DetectionFrames    int           `json:"detection_frames"`
	NonDetectionFrames int           `json:"non_detection_frames"`
	MemoryValid        bool          `json:"memory_valid"`
	MemoryAge          time.Duration `json:"memory_age"`
	Resolution         Resolution    `json:"resolution"`
	Verdict            Verdict       `json:"verdict"`
	Target             Target        `json:"target"`
}

// MarshalJSON implements json.Marshaler.
func (d Diagnostics) MarshalJSON() ([]byte, error) {
	type plain Diagnostics
	age := -1.0
	if d.MemoryAge >= 0 {
		age = d.MemoryAge.Seconds()
	}
	return json.Marshal(struct {
		plain
		MemoryAge float64 `json:"memory_age"`
	}{plain(d), age})
}

// Output is what consumers read after each tick.
type Output struct {
	Tracked      bool               `json:"tracked"`
	UserID       uint64             `json:"user_id"`
	Holding      bool               `json:"holding"`
	Center       detector.Point3D   `json:"center"`
	Candidate    detector.Point3D   `json:"candidate"`
	Left         detector.Point3D   `json:"left"`
	Right        detector.Point3D   `json:"right"`
	LeftState    detector.HandState `json:"left_state"`
	RightState   detector.HandState `json:"right_state"`
	HandDistance float64            `json:"hand_distance"`
	LeftClosed   bool               `json:"left_closed"`
	RightClosed  bool               `json:"right_closed"`
	BothClosed   bool               `json:"both_closed"`
	Diagnostics  Diagnostics        `json:"diagnostics"`
}

func resetOutput() Output {
	return Output{
		Diagnostics: Diagnostics{
			MemoryAge: -1,
			Verdict:   Verdict{Rule: RuleNoUser},
		},
	}
}

// Step runs one tick: resolve, classify, debounce, smooth. It does not
// mutate prev. A body without a tracked user returns the zero State.
func Step(prev State, in Input, cfg Config) (State, Output) {
	if !in.Body.Tracked() {
		return State{}, resetOutput()
	}

	snap := BuildSnapshot(in.Body, in.Now)
	center, resolution, mem := Resolve(snap, cfg, prev.Memory)
	verdict := Classify(snap, cfg, mem)
	debounce := prev.Debounce.Advance(verdict.Raw, cfg.AcquireFrames)
	smoothed, target := Smooth(prev.Smoothed, center, debounce.Holding, snap, cfg, mem, in.Delta)

	next := State{
		Debounce: debounce,
		Smoothed: smoothed,
		Memory:   mem,
	}

	leftClosed := snap.LeftState.IsGrasping()
	rightClosed := snap.RightState.IsGrasping()

	out := Output{
		Tracked:      true,
		UserID:       in.Body.UserID,
		Holding:      debounce.Holding,
		Center:       smoothed,
		Candidate:    center,
		Left:         snap.Left,
		Right:        snap.Right,
		LeftState:    snap.LeftState,
		RightState:   snap.RightState,
		HandDistance: snap.HandDistance(),
		LeftClosed:   leftClosed,
		RightClosed:  rightClosed,
		BothClosed:   leftClosed && rightClosed,
		Diagnostics: Diagnostics{
			DetectionFrames:    debounce.DetectionFrames,
			NonDetectionFrames: debounce.NonDetectionFrames,
			MemoryValid:        cfg.UseMemory && mem.ValidWithin(in.Now, cfg.MemoryRetention),
			MemoryAge:          mem.Age(in.Now),
			Resolution:         resolution,
			Verdict:            verdict,
			Target:             target,
		},
	}

	return next, out
}
