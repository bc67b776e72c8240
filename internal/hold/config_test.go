package hold

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, PolicyPermissive, cfg.Policy)
	assert.Equal(t, 0.4, cfg.MaxHandDistance)
	assert.Equal(t, -0.2, cfg.MinHandHeight)
	assert.Equal(t, 3, cfg.AcquireFrames)
	assert.Equal(t, 0.8, cfg.SmoothingFactor)
	assert.True(t, cfg.UseMemory)
	assert.Equal(t, 2*time.Second, cfg.MemoryRetention)
	assert.True(t, cfg.PreventJumps)
	assert.True(t, cfg.SingleHandFallback)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"non-positive distance", func(c *Config) { c.MaxHandDistance = 0 }},
		{"zero acquire frames", func(c *Config) { c.AcquireFrames = 0 }},
		{"smoothing above one", func(c *Config) { c.SmoothingFactor = 1.5 }},
		{"negative smoothing", func(c *Config) { c.SmoothingFactor = -0.1 }},
		{"zero retention with memory", func(c *Config) { c.MemoryRetention = 0 }},
		{"unknown policy", func(c *Config) { c.Policy = Policy(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("zero retention without memory is fine", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UseMemory = false
		cfg.MemoryRetention = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestPolicy_Text(t *testing.T) {
	p, err := ParsePolicy(" Strict ")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("lenient")
	assert.Error(t, err)

	data, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"policy":"permissive"`)

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"policy":"strict","acquire_frames":4}`), &cfg))
	assert.Equal(t, PolicyStrict, cfg.Policy)
	assert.Equal(t, 4, cfg.AcquireFrames)
}

func TestConfig_JSONRetentionSeconds(t *testing.T) {
	data, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"memory_retention":2`)

	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{"seconds", `{"memory_retention":2}`, 2 * time.Second},
		{"fractional seconds", `{"memory_retention":1.5}`, 1500 * time.Millisecond},
		{"duration string", `{"memory_retention":"750ms"}`, 750 * time.Millisecond},
		{"missing keeps current", `{"acquire_frames":4}`, DefaultConfig().MemoryRetention},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			require.NoError(t, json.Unmarshal([]byte(tt.body), &cfg))
			assert.Equal(t, tt.want, cfg.MemoryRetention)
			assert.Equal(t, DefaultConfig().MaxHandDistance, cfg.MaxHandDistance)
		})
	}

	var cfg Config
	assert.Error(t, json.Unmarshal([]byte(`{"memory_retention":"soon"}`), &cfg))
	assert.Error(t, json.Unmarshal([]byte(`{"memory_retention":true}`), &cfg))
}

func TestDiagnostics_JSONMemoryAge(t *testing.T) {
	data, err := json.Marshal(Diagnostics{MemoryAge: 250 * time.Millisecond, Resolution: ResolvedMemory})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"memory_age":0.25`)

	data, err = json.Marshal(resetOutput().Diagnostics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"memory_age":-1`)
}

func TestPreset_Apply(t *testing.T) {
	base := DefaultConfig()
	base.SmoothingFactor = 0.33

	tests := []struct {
		preset Preset
		check  func(t *testing.T, c Config)
	}{
		{PresetVeryEasy, func(t *testing.T, c Config) {
			assert.Equal(t, PolicyPermissive, c.Policy)
			assert.True(t, c.UseMemory)
			assert.Equal(t, 2, c.AcquireFrames)
			assert.Equal(t, 2*time.Second, c.MemoryRetention)
			assert.True(t, c.PreventJumps)
			assert.True(t, c.SingleHandFallback)
		}},
		{PresetVeryEasyNoMemory, func(t *testing.T, c Config) {
			assert.Equal(t, PolicyPermissive, c.Policy)
			assert.False(t, c.UseMemory)
			assert.Equal(t, 2, c.AcquireFrames)
			assert.False(t, c.PreventJumps)
			assert.False(t, c.SingleHandFallback)
		}},
		{PresetSensitive, func(t *testing.T, c Config) {
			assert.Equal(t, PolicyStrict, c.Policy)
			assert.Equal(t, 0.6, c.MaxHandDistance)
			assert.Equal(t, -0.4, c.MinHandHeight)
			assert.Equal(t, 2, c.AcquireFrames)
		}},
		{PresetNormal, func(t *testing.T, c Config) {
			assert.Equal(t, PolicyStrict, c.Policy)
			assert.Equal(t, 0.4, c.MaxHandDistance)
			assert.Equal(t, -0.2, c.MinHandHeight)
			assert.Equal(t, 3, c.AcquireFrames)
		}},
		{PresetStrict, func(t *testing.T, c Config) {
			assert.Equal(t, PolicyStrict, c.Policy)
			assert.Equal(t, 0.3, c.MaxHandDistance)
			assert.Equal(t, 0.0, c.MinHandHeight)
			assert.Equal(t, 5, c.AcquireFrames)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			cfg, err := tt.preset.Apply(base)
			require.NoError(t, err)
			tt.check(t, cfg)
			assert.Equal(t, 0.33, cfg.SmoothingFactor, "presets keep unrelated fields")
			assert.NoError(t, cfg.Validate())
		})
	}

	assert.Len(t, Presets(), len(tests))

	_, err := Preset("turbo").Apply(base)
	assert.Error(t, err)
}

func TestSmoothingFactorFor(t *testing.T) {
	assert.InDelta(t, 0.1, SmoothingFactorFor(0), 1e-9)
	assert.InDelta(t, 0.9, SmoothingFactorFor(1), 1e-9)
	assert.InDelta(t, 0.66, SmoothingFactorFor(SmoothingStable), 1e-9)
	assert.InDelta(t, 0.34, SmoothingFactorFor(SmoothingResponsive), 1e-9)
	assert.InDelta(t, 0.5, SmoothingFactorFor(SmoothingGaming), 1e-9)
	assert.InDelta(t, 0.9, SmoothingFactorFor(3), 1e-9)
}
