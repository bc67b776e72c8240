package hold

import (
	"time"

	"github.com/ayusman/holdsense/internal/detector"
)

// Memory is the last directly observed hold center.
type Memory struct {
	Center detector.Point3D `json:"center"`
	At     time.Time        `json:"at"`
	Valid  bool             `json:"valid"`
}

// Age returns how long ago the memory was refreshed, or -1 when it holds nothing.
func (m Memory) Age(now time.Time) time.Duration {
	if !m.Valid {
		return -1
	}
	return now.Sub(m.At)
}

// ValidWithin reports whether the memory is younger than window.
func (m Memory) ValidWithin(now time.Time, window time.Duration) bool {
	return m.Valid && now.Sub(m.At) < window
}

func (m Memory) refresh(center detector.Point3D, now time.Time) Memory {
	return Memory{Center: center, At: now, Valid: true}
}

// Resolution tags which rule produced the candidate center.
type Resolution int

const (
	ResolvedNone Resolution = iota
	ResolvedMidpoint
	ResolvedSingleHand
	ResolvedMemory
	ResolvedSpineBase
)

func (r Resolution) String() string {
	switch r {
	case ResolvedNone:
		return "none"
	case ResolvedMidpoint:
		return "midpoint"
	case ResolvedSingleHand:
		return "single_hand"
	case ResolvedMemory:
		return "memory"
	case ResolvedSpineBase:
		return "spine_base"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type resolveRule struct {
	tag     Resolution
	applies func(s Snapshot, cfg Config, mem Memory) bool
	center  func(s Snapshot, mem Memory) detector.Point3D
	fresh   bool
}

var (
	ruleMidpoint = resolveRule{
		tag:     ResolvedMidpoint,
		applies: func(s Snapshot, _ Config, _ Memory) bool { return s.BothHands() },
		center:  func(s Snapshot, _ Memory) detector.Point3D { return s.Midpoint() },
		fresh:   true,
	}
	ruleSingleHand = resolveRule{
		tag: ResolvedSingleHand,
		applies: func(s Snapshot, cfg Config, _ Memory) bool {
			return cfg.SingleHandFallback && s.OneHand()
		},
		center: func(s Snapshot, _ Memory) detector.Point3D { return s.TrackedHand() },
		fresh:  true,
	}
	ruleMemory = resolveRule{
		tag: ResolvedMemory,
		applies: func(s Snapshot, cfg Config, mem Memory) bool {
			return mem.ValidWithin(s.Now, cfg.MemoryRetention)
		},
		center: func(_ Snapshot, mem Memory) detector.Point3D { return mem.Center },
	}
	ruleSpineBase = resolveRule{
		tag:     ResolvedSpineBase,
		applies: func(Snapshot, Config, Memory) bool { return true },
		center:  func(s Snapshot, _ Memory) detector.Point3D { return s.SpineBase },
	}
)

var (
	resolveWithoutMemory = []resolveRule{ruleMidpoint, ruleSpineBase}
	resolveWithMemory    = []resolveRule{ruleMidpoint, ruleSingleHand, ruleMemory, ruleSpineBase}
)

// Resolve computes the candidate hold center. The first applicable rule
// wins. With memory enabled, midpoint and single-hand results refresh the
// returned memory; reusing memory does not.
func Resolve(s Snapshot, cfg Config, mem Memory) (detector.Point3D, Resolution, Memory) {
	rules := resolveWithoutMemory
	if cfg.UseMemory {
		rules = resolveWithMemory
	}

	for _, rule := range rules {
		if !rule.applies(s, cfg, mem) {
			continue
		}
		center := rule.center(s, mem)
		if cfg.UseMemory && rule.fresh {
			mem = mem.refresh(center, s.Now)
		}
		return center, rule.tag, mem
	}

	// Unreachable: the spine-base rule always applies.
	return s.SpineBase, ResolvedSpineBase, mem
}
