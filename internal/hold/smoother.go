package hold

import (
	"time"

	"github.com/ayusman/holdsense/internal/detector"
)

// Target tags which anchor the smoother moved toward.
type Target int

const (
	TargetNone Target = iota
	TargetCenter
	TargetSpineBase
	TargetMemoryDrift
)

func (t Target) String() string {
	switch t {
	case TargetNone:
		return "none"
	case TargetCenter:
		return "center"
	case TargetSpineBase:
		return "spine_base"
	case TargetMemoryDrift:
		return "memory_drift"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Smooth moves prev toward a state dependent target. The blend rate is
// SmoothingFactor × dt × a per-target multiplier, clamped to [0, 1].
func Smooth(prev, center detector.Point3D, holding bool, s Snapshot, cfg Config, mem Memory, dt time.Duration) (detector.Point3D, Target) {
	target, tag, scale := smoothTarget(center, holding, s, cfg, mem)
	rate := clamp01(cfg.SmoothingFactor * dt.Seconds() * scale)
	return detector.Lerp(prev, target, rate), tag
}

func smoothTarget(center detector.Point3D, holding bool, s Snapshot, cfg Config, mem Memory) (detector.Point3D, Target, float64) {
	switch {
	case holding:
		return center, TargetCenter, holdingRateScale
	case !cfg.UseMemory:
		return s.SpineBase, TargetSpineBase, releaseRateScale
	case cfg.PreventJumps && mem.ValidWithin(s.Now, cfg.MemoryRetention):
		ratio := float64(mem.Age(s.Now)) / float64(cfg.MemoryRetention)
		return detector.Lerp(mem.Center, s.SpineBase, ratio), TargetMemoryDrift, driftRateScale
	default:
		return s.SpineBase, TargetSpineBase, releaseRateScale
	}
}
