package hold

import (
	"time"

	"github.com/ayusman/holdsense/internal/detector"
)

// Snapshot is the immutable view of one tick's sensor readings.
type Snapshot struct {
	Left         detector.Point3D
	Right        detector.Point3D
	LeftTracked  bool
	RightTracked bool
	LeftState    detector.HandState
	RightState   detector.HandState
	SpineBase    detector.Point3D
	SpineMid     detector.Point3D
	Now          time.Time
}

// BuildSnapshot packages a tracked body into a Snapshot.
func BuildSnapshot(body detector.Body, now time.Time) Snapshot {
	return Snapshot{
		Left:         body.Position(detector.HandLeft),
		Right:        body.Position(detector.HandRight),
		LeftTracked:  body.IsTracked(detector.HandLeft),
		RightTracked: body.IsTracked(detector.HandRight),
		LeftState:    body.LeftHandState,
		RightState:   body.RightHandState,
		SpineBase:    body.Position(detector.SpineBase),
		SpineMid:     body.Position(detector.SpineMid),
		Now:          now,
	}
}

// BothHands reports whether both hands are tracked.
func (s Snapshot) BothHands() bool {
	return s.LeftTracked && s.RightTracked
}

// OneHand reports whether exactly one hand is tracked.
func (s Snapshot) OneHand() bool {
	return s.LeftTracked != s.RightTracked
}

// NoHands reports whether neither hand is tracked.
func (s Snapshot) NoHands() bool {
	return !s.LeftTracked && !s.RightTracked
}

// TrackedHand returns the position of the tracked hand when exactly one is.
func (s Snapshot) TrackedHand() detector.Point3D {
	if s.LeftTracked {
		return s.Left
	}
	return s.Right
}

// Midpoint returns the point halfway between the hands.
func (s Snapshot) Midpoint() detector.Point3D {
	return detector.Midpoint(s.Left, s.Right)
}

// HandDistance returns the distance between the reported hand positions.
func (s Snapshot) HandDistance() float64 {
	return s.Left.Distance(s.Right)
}
