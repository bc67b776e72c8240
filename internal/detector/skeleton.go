// Package detector provides skeletal tracking source interfaces and types for hold detection.
package detector

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Joint indices for the subset of the tracked skeleton the hold detector reads.
const (
	SpineBase JointType = iota
	SpineMid
	Head
	HandLeft
	HandRight
	NumJoints
)

// NoUser is the sentinel user identifier reported when nobody is tracked.
const NoUser uint64 = 0

// JointType identifies a tracked body landmark.
type JointType int

// String returns the joint name.
func (j JointType) String() string {
	switch j {
	case SpineBase:
		return "spine_base"
	case SpineMid:
		return "spine_mid"
	case Head:
		return "head"
	case HandLeft:
		return "hand_left"
	case HandRight:
		return "hand_right"
	default:
		return fmt.Sprintf("joint(%d)", int(j))
	}
}

// Point3D represents a 3D point in sensor space, in metres.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func fromVec(v r3.Vec) Point3D {
	return Point3D{X: v.X, Y: v.Y, Z: v.Z}
}

// Add returns p+q.
func (p Point3D) Add(q Point3D) Point3D {
	return fromVec(r3.Add(p.vec(), q.vec()))
}

// Sub returns p-q.
func (p Point3D) Sub(q Point3D) Point3D {
	return fromVec(r3.Sub(p.vec(), q.vec()))
}

// Scale returns p scaled by f.
func (p Point3D) Scale(f float64) Point3D {
	return fromVec(r3.Scale(f, p.vec()))
}

// Distance returns the Euclidean distance between p and q.
func (p Point3D) Distance(q Point3D) float64 {
	return r3.Norm(r3.Sub(p.vec(), q.vec()))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point3D) Point3D {
	return fromVec(r3.Scale(0.5, r3.Add(a.vec(), b.vec())))
}

// Lerp linearly interpolates from a to b by t. t is not clamped.
func Lerp(a, b Point3D, t float64) Point3D {
	return fromVec(r3.Add(a.vec(), r3.Scale(t, r3.Sub(b.vec(), a.vec()))))
}

// Joint is a single tracked landmark.
type Joint struct {
	Position Point3D `json:"position"`
	Tracked  bool    `json:"tracked"`
}

// HandState is the openness of a hand as reported by the sensor.
type HandState int

const (
	HandNotTracked HandState = iota
	HandUnknown
	HandOpen
	HandClosed
	HandLasso
)

var handStateNames = map[HandState]string{
	HandNotTracked: "not_tracked",
	HandUnknown:    "unknown",
	HandOpen:       "open",
	HandClosed:     "closed",
	HandLasso:      "lasso",
}

// String returns the lower-case name of the hand state.
func (s HandState) String() string {
	if name, ok := handStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("hand_state(%d)", int(s))
}

// IsGrasping reports whether the hand is Closed or Lasso.
func (s HandState) IsGrasping() bool {
	return s == HandClosed || s == HandLasso
}

// MarshalText implements encoding.TextMarshaler.
func (s HandState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *HandState) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for state, n := range handStateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown hand state %q", string(text))
}

// Body is the primary tracked user for one tick.
type Body struct {
	UserID         uint64           `json:"user_id"`
	Joints         [NumJoints]Joint `json:"joints"`
	LeftHandState  HandState        `json:"left_hand_state"`
	RightHandState HandState        `json:"right_hand_state"`
}

// Tracked reports whether the body belongs to a valid tracked user.
func (b *Body) Tracked() bool {
	return b != nil && b.UserID != NoUser
}

// Joint returns the joint of the given type.
func (b *Body) Joint(t JointType) Joint {
	if t < 0 || t >= NumJoints {
		return Joint{}
	}
	return b.Joints[t]
}

// Position returns the position of the given joint.
func (b *Body) Position(t JointType) Point3D {
	return b.Joint(t).Position
}

// IsTracked reports whether the given joint is tracked.
func (b *Body) IsTracked(t JointType) bool {
	return b.Joint(t).Tracked
}
