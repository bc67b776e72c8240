package hold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/holdsense/internal/detector"
)

type ticker struct {
	d    *Detector
	i    int
	step time.Duration
}

func newTicker(cfg Config, step time.Duration) *ticker {
	return &ticker{d: NewDetector(cfg), step: step}
}

func (tk *ticker) tick(body detector.Body) Output {
	out := tk.d.Tick(Input{Body: body, Now: at(tk.i, tk.step), Delta: tk.step})
	tk.i++
	return out
}

func (tk *ticker) now() time.Time {
	return at(tk.i-1, tk.step)
}

func TestStep_AcquireAfterThreshold(t *testing.T) {
	for _, cfg := range []Config{permissive(false), permissive(true), strict()} {
		t.Run(cfg.Policy.String(), func(t *testing.T) {
			cfg.AcquireFrames = 3
			tk := newTicker(cfg, frame)

			assert.False(t, tk.tick(detector.HoldingBody()).Holding, "tick 1")
			assert.False(t, tk.tick(detector.HoldingBody()).Holding, "tick 2")
			out := tk.tick(detector.HoldingBody())
			assert.True(t, out.Holding, "tick 3")
			assert.Equal(t, 3, out.Diagnostics.DetectionFrames)
			assert.True(t, tk.tick(detector.HoldingBody()).Holding, "tick 4")
		})
	}
}

func TestStep_ReleaseAfterTwoMisses(t *testing.T) {
	for _, cfg := range []Config{permissive(false), strict()} {
		t.Run(cfg.Policy.String(), func(t *testing.T) {
			tk := newTicker(cfg, frame)
			for i := 0; i < cfg.AcquireFrames; i++ {
				tk.tick(detector.HoldingBody())
			}
			require.True(t, tk.d.Output().Holding)

			miss := detector.NoHandsBody()
			if cfg.Policy == PolicyStrict {
				miss = detector.ArmsDownBody()
			}

			assert.True(t, tk.tick(miss).Holding, "first miss")
			out := tk.tick(miss)
			assert.False(t, out.Holding, "second miss")
			assert.Equal(t, ReleaseFrames, out.Diagnostics.NonDetectionFrames)
		})
	}
}

func TestStep_SingleLostTickKeepsHolding(t *testing.T) {
	tk := newTicker(permissive(false), frame)
	for i := 0; i < 3; i++ {
		tk.tick(detector.HoldingBody())
	}

	assert.True(t, tk.tick(detector.NoHandsBody()).Holding)
	assert.True(t, tk.tick(detector.HoldingBody()).Holding)
	assert.True(t, tk.tick(detector.HoldingBody()).Holding)
}

func TestStep_BothHandsRefreshMemory(t *testing.T) {
	tk := newTicker(permissive(true), frame)
	body := detector.HoldingBody()

	out := tk.tick(body)

	state := tk.d.State()
	assert.True(t, state.Memory.Valid)
	assert.Equal(t, tk.now(), state.Memory.At)
	assertPoint(t, detector.Midpoint(body.Position(detector.HandLeft), body.Position(detector.HandRight)), out.Candidate)
	assert.Equal(t, ResolvedMidpoint, out.Diagnostics.Resolution)
	assert.Equal(t, time.Duration(0), out.Diagnostics.MemoryAge)
}

func TestStep_NoHandsGraceUnderPermissiveMemory(t *testing.T) {
	step := 100 * time.Millisecond
	cfg := permissive(true)
	grace := time.Duration(float64(cfg.MemoryRetention) * NoHandsGraceRatio)
	tk := newTicker(cfg, step)

	for i := 0; i < 5; i++ {
		tk.tick(detector.HoldingBody())
	}
	require.True(t, tk.d.Output().Holding)
	lastSeen := tk.now()

	var released time.Duration
	for i := 0; i < 20; i++ {
		out := tk.tick(detector.NoHandsBody())
		age := tk.now().Sub(lastSeen)

		if age < grace {
			assert.True(t, out.Holding, "age %v", age)
			assert.True(t, out.Diagnostics.Verdict.Raw, "age %v", age)
			assert.Equal(t, ResolvedMemory, out.Diagnostics.Resolution)
		} else {
			assert.False(t, out.Diagnostics.Verdict.Raw, "age %v", age)
		}
		if !out.Holding && released == 0 {
			released = age
		}
	}

	assert.GreaterOrEqual(t, released, grace)
	assert.Less(t, released, grace+ReleaseFrames*step)
}

func TestStep_SingleHandFallbackHolds(t *testing.T) {
	tk := newTicker(permissive(true), frame)
	for i := 0; i < 3; i++ {
		tk.tick(detector.HoldingBody())
	}

	for i := 0; i < 100; i++ {
		out := tk.tick(detector.OneHandBody())
		require.True(t, out.Holding, "tick %d", i)
		assert.Equal(t, ResolvedSingleHand, out.Diagnostics.Resolution)
	}
}

func TestStep_OneHandWithoutFallbackReleases(t *testing.T) {
	cfg := permissive(true)
	cfg.SingleHandFallback = false
	tk := newTicker(cfg, frame)
	for i := 0; i < 3; i++ {
		tk.tick(detector.HoldingBody())
	}

	tk.tick(detector.OneHandBody())
	out := tk.tick(detector.OneHandBody())

	assert.False(t, out.Holding)
	assert.Equal(t, ResolvedMemory, out.Diagnostics.Resolution)
}

func TestStep_ResetOnLostUser(t *testing.T) {
	tk := newTicker(permissive(true), frame)
	for i := 0; i < 10; i++ {
		tk.tick(detector.HoldingBody())
	}
	require.True(t, tk.d.Output().Holding)

	out := tk.tick(detector.NoBody())

	assert.False(t, out.Tracked)
	assert.False(t, out.Holding)
	assert.Zero(t, out.Diagnostics.DetectionFrames)
	assert.Zero(t, out.Diagnostics.NonDetectionFrames)
	assert.False(t, out.Diagnostics.MemoryValid)
	assert.Equal(t, time.Duration(-1), out.Diagnostics.MemoryAge)
	assert.Equal(t, RuleNoUser, out.Diagnostics.Verdict.Rule)
	assert.Equal(t, State{}, tk.d.State())

	t.Run("next user starts from scratch", func(t *testing.T) {
		out := tk.tick(detector.HoldingBody())
		assert.False(t, out.Holding)
		assert.Equal(t, 1, out.Diagnostics.DetectionFrames)
	})
}

func TestStep_JumpPreventionOnRelease(t *testing.T) {
	releaseMove := func(cfg Config) float64 {
		tk := newTicker(cfg, frame)
		for i := 0; i < 60; i++ {
			tk.tick(detector.HoldingBody())
		}
		prev := tk.d.Output()
		for i := 0; i < 200; i++ {
			out := tk.tick(detector.NoHandsBody())
			if !out.Holding {
				return out.Center.Distance(prev.Center)
			}
			prev = out
		}
		t.Fatal("never released")
		return 0
	}

	withPrevention := releaseMove(permissive(true))
	noPrevention := permissive(true)
	noPrevention.PreventJumps = false
	without := releaseMove(noPrevention)

	assert.Less(t, withPrevention, 0.03)
	assert.Less(t, withPrevention, without)
}

func TestStep_HandOutputs(t *testing.T) {
	body := detector.HoldingBody()
	body.LeftHandState = detector.HandLasso
	body.RightHandState = detector.HandOpen

	_, out := Step(State{}, Input{Body: body, Now: t0, Delta: frame}, DefaultConfig())

	assert.True(t, out.Tracked)
	assert.Equal(t, body.UserID, out.UserID)
	assert.True(t, out.LeftClosed)
	assert.False(t, out.RightClosed)
	assert.False(t, out.BothClosed)
	assert.InDelta(t, 0.3, out.HandDistance, 1e-9)
}

func TestStep_DoesNotMutatePrevious(t *testing.T) {
	prev := State{Debounce: Debounce{DetectionFrames: 2}}
	cfg := permissive(true)

	next, _ := Step(prev, Input{Body: detector.HoldingBody(), Now: t0, Delta: frame}, cfg)

	assert.Equal(t, 2, prev.DetectionFrames)
	assert.Equal(t, 3, next.DetectionFrames)
	assert.True(t, next.Holding)
}

func TestDetector_SetConfigAppliesNextTick(t *testing.T) {
	tk := newTicker(permissive(false), frame)
	tk.tick(detector.ArmsDownBody())
	tk.tick(detector.ArmsDownBody())
	require.False(t, tk.d.Output().Holding)

	tk.d.SetConfig(strict())
	assert.Equal(t, PolicyStrict, tk.d.Config().Policy)

	out := tk.tick(detector.ArmsDownBody())
	assert.False(t, out.Diagnostics.Verdict.Raw)
	assert.Equal(t, RuleStrictChecks, out.Diagnostics.Verdict.Rule)
}

func TestDetector_Reset(t *testing.T) {
	tk := newTicker(permissive(true), frame)
	for i := 0; i < 5; i++ {
		tk.tick(detector.HoldingBody())
	}

	tk.d.Reset()

	assert.Equal(t, State{}, tk.d.State())
	assert.False(t, tk.d.Output().Holding)
	assert.Equal(t, time.Duration(-1), tk.d.Output().Diagnostics.MemoryAge)
}
