package hold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/holdsense/internal/detector"
)

const frame = 33 * time.Millisecond

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(i int, step time.Duration) time.Time {
	return t0.Add(time.Duration(i) * step)
}

func assertPoint(t *testing.T, want, got detector.Point3D, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-9, msgAndArgs...)
}

func snapshotOf(body detector.Body, now time.Time) Snapshot {
	return BuildSnapshot(body, now)
}

func withHands(left, right detector.Point3D) detector.Body {
	b := detector.HoldingBody()
	b.Joints[detector.HandLeft].Position = left
	b.Joints[detector.HandRight].Position = right
	return b
}

func permissive(useMemory bool) Config {
	cfg := DefaultConfig()
	cfg.Policy = PolicyPermissive
	cfg.UseMemory = useMemory
	return cfg
}

func strict() Config {
	cfg := DefaultConfig()
	cfg.Policy = PolicyStrict
	return cfg
}
