package hold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/holdsense/internal/detector"
)

func TestResolve_BothHands(t *testing.T) {
	for _, useMemory := range []bool{false, true} {
		cfg := permissive(useMemory)
		body := withHands(detector.Point3D{X: -0.3, Y: 0.1, Z: 1.5}, detector.Point3D{X: 0.1, Y: 0.5, Z: 1.9})
		now := at(10, frame)

		center, res, mem := Resolve(snapshotOf(body, now), cfg, Memory{})

		assert.Equal(t, ResolvedMidpoint, res)
		assertPoint(t, detector.Point3D{X: -0.1, Y: 0.3, Z: 1.7}, center)
		if useMemory {
			assert.True(t, mem.Valid)
			assert.Equal(t, now, mem.At)
			assertPoint(t, center, mem.Center)
		} else {
			assert.False(t, mem.Valid, "memory must not be touched when disabled")
		}
	}
}

func TestResolve_WithoutMemory(t *testing.T) {
	cfg := permissive(false)
	prior := Memory{Center: detector.Point3D{X: 1, Y: 1, Z: 1}, At: t0, Valid: true}

	for name, body := range map[string]detector.Body{
		"one hand": detector.OneHandBody(),
		"no hands": detector.NoHandsBody(),
	} {
		t.Run(name, func(t *testing.T) {
			center, res, mem := Resolve(snapshotOf(body, t0), cfg, prior)

			assert.Equal(t, ResolvedSpineBase, res)
			assertPoint(t, body.Position(detector.SpineBase), center)
			assert.Equal(t, prior, mem)
		})
	}
}

func TestResolve_SingleHandFallback(t *testing.T) {
	cfg := permissive(true)
	body := detector.OneHandBody()
	now := at(3, frame)

	center, res, mem := Resolve(snapshotOf(body, now), cfg, Memory{})

	assert.Equal(t, ResolvedSingleHand, res)
	assertPoint(t, body.Position(detector.HandLeft), center)
	assert.True(t, mem.Valid)
	assert.Equal(t, now, mem.At)

	t.Run("right hand only", func(t *testing.T) {
		b := detector.HoldingBody()
		b.Joints[detector.HandLeft].Tracked = false

		center, res, _ := Resolve(snapshotOf(b, now), cfg, Memory{})

		assert.Equal(t, ResolvedSingleHand, res)
		assertPoint(t, b.Position(detector.HandRight), center)
	})
}

func TestResolve_MemoryReuse(t *testing.T) {
	cfg := permissive(true)
	cfg.SingleHandFallback = false
	remembered := detector.Point3D{X: 0.2, Y: 0.3, Z: 1.6}
	prior := Memory{Center: remembered, At: t0, Valid: true}

	t.Run("one hand without fallback reuses memory", func(t *testing.T) {
		center, res, mem := Resolve(snapshotOf(detector.OneHandBody(), t0.Add(500*time.Millisecond)), cfg, prior)

		assert.Equal(t, ResolvedMemory, res)
		assertPoint(t, remembered, center)
		assert.Equal(t, t0, mem.At, "reuse must not refresh the timestamp")
	})

	tests := []struct {
		name string
		age  time.Duration
		want Resolution
	}{
		{"just inside retention", cfg.MemoryRetention - time.Millisecond, ResolvedMemory},
		{"at retention", cfg.MemoryRetention, ResolvedSpineBase},
		{"just past retention", cfg.MemoryRetention + time.Millisecond, ResolvedSpineBase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := detector.NoHandsBody()

			center, res, mem := Resolve(snapshotOf(body, t0.Add(tt.age)), cfg, prior)

			assert.Equal(t, tt.want, res)
			assert.Equal(t, prior, mem)
			if tt.want == ResolvedSpineBase {
				assertPoint(t, body.Position(detector.SpineBase), center)
			}
		})
	}
}

func TestMemory_Age(t *testing.T) {
	assert.Equal(t, time.Duration(-1), Memory{}.Age(t0))

	m := Memory{At: t0, Valid: true}
	assert.Equal(t, 1500*time.Millisecond, m.Age(t0.Add(1500*time.Millisecond)))
	assert.True(t, m.ValidWithin(t0.Add(time.Second-time.Nanosecond), time.Second))
	assert.False(t, m.ValidWithin(t0.Add(time.Second+time.Nanosecond), time.Second))
}
