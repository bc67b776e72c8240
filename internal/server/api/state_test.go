package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/hold"
)

func TestStateHandler_State(t *testing.T) {
	h := NewStateHandler(newTestRuntime(t, nil))

	rec := doRequest(t, h.State, http.MethodGet, "/api/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var st map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	out, ok := st["output"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing output in %v", st)
	}
	if out["tracked"] != false || out["holding"] != false {
		t.Errorf("fresh runtime should report no user, got %v", out)
	}
	if st["enabled"] != true {
		t.Error("fresh runtime should be enabled")
	}
	if st["feedback"] != "not_detected" {
		t.Errorf("feedback = %v", st["feedback"])
	}

	rec = doRequest(t, h.State, http.MethodPost, "/api/state", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestStateHandler_Debug(t *testing.T) {
	h := NewStateHandler(newTestRuntime(t, nil))

	rec := doRequest(t, h.Debug, http.MethodGet, "/api/debug", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected Content-Type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "user tracked: --") {
		t.Errorf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestStateHandler_Config(t *testing.T) {
	rt := newTestRuntime(t, nil)
	h := NewStateHandler(rt)

	t.Run("get lists presets", func(t *testing.T) {
		rec := doRequest(t, h.Config, http.MethodGet, "/api/config", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var resp configResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Detection != hold.DefaultConfig() {
			t.Errorf("detection = %+v", resp.Detection)
		}
		if len(resp.Presets) != len(hold.Presets()) {
			t.Errorf("expected %d presets, got %d", len(hold.Presets()), len(resp.Presets))
		}
	})

	t.Run("put merges partial detection config", func(t *testing.T) {
		body := map[string]interface{}{
			"detection":  map[string]interface{}{"acquire_frames": 4, "policy": "strict"},
			"controller": map[string]interface{}{"filter": "kalman"},
		}
		rec := doRequest(t, h.Config, http.MethodPut, "/api/config", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		cfg := rt.DetectionConfig()
		if cfg.AcquireFrames != 4 || cfg.Policy != hold.PolicyStrict {
			t.Errorf("detection not updated: %+v", cfg)
		}
		if cfg.MaxHandDistance != hold.DefaultConfig().MaxHandDistance {
			t.Error("fields not in the request should keep their values")
		}
		if rt.ControllerConfig().Filter != app.FilterKalman {
			t.Errorf("controller filter = %q", rt.ControllerConfig().Filter)
		}
	})

	t.Run("put reads retention in seconds", func(t *testing.T) {
		body := map[string]interface{}{"detection": map[string]interface{}{"memory_retention": 1.5}}
		rec := doRequest(t, h.Config, http.MethodPut, "/api/config", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		if got := rt.DetectionConfig().MemoryRetention; got != 1500*time.Millisecond {
			t.Errorf("memory retention = %v, want 1.5s", got)
		}
	})

	t.Run("put maps smoothing knob", func(t *testing.T) {
		rec := doRequest(t, h.Config, http.MethodPut, "/api/config", map[string]float64{"smoothing": hold.SmoothingStable})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if got := rt.DetectionConfig().SmoothingFactor; got < 0.659 || got > 0.661 {
			t.Errorf("smoothing factor = %v, want 0.66", got)
		}
	})

	t.Run("put applies preset", func(t *testing.T) {
		rec := doRequest(t, h.Config, http.MethodPut, "/api/config", map[string]string{"preset": "very_easy_no_memory"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		cfg := rt.DetectionConfig()
		if cfg.Policy != hold.PolicyPermissive || cfg.UseMemory {
			t.Errorf("preset not applied: %+v", cfg)
		}
	})

	t.Run("put rejects invalid values", func(t *testing.T) {
		before := rt.DetectionConfig()
		cases := []interface{}{
			map[string]interface{}{"detection": map[string]interface{}{"acquire_frames": 0}},
			map[string]interface{}{"detection": map[string]interface{}{"policy": "lenient"}},
			map[string]interface{}{"controller": map[string]interface{}{"coordinate_scale": -1}},
			map[string]string{"preset": "impossible"},
		}
		for i, body := range cases {
			rec := doRequest(t, h.Config, http.MethodPut, "/api/config", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("case %d: expected status %d, got %d", i, http.StatusBadRequest, rec.Code)
			}
		}
		if rt.DetectionConfig() != before {
			t.Error("rejected updates must not change the config")
		}
	})

	t.Run("put rejects the whole update when one part fails", func(t *testing.T) {
		beforeDetection := rt.DetectionConfig()
		beforeController := rt.ControllerConfig()

		cases := []interface{}{
			map[string]interface{}{
				"detection":  map[string]interface{}{"acquire_frames": 7},
				"controller": map[string]interface{}{"coordinate_scale": 9},
				"preset":     "impossible",
			},
			map[string]interface{}{
				"detection":  map[string]interface{}{"acquire_frames": 0},
				"controller": map[string]interface{}{"coordinate_scale": 9},
			},
			map[string]interface{}{
				"detection":  map[string]interface{}{"acquire_frames": 7},
				"controller": map[string]interface{}{"filter": "median"},
			},
		}
		for i, body := range cases {
			rec := doRequest(t, h.Config, http.MethodPut, "/api/config", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("case %d: expected status %d, got %d", i, http.StatusBadRequest, rec.Code)
			}
		}

		if got := rt.DetectionConfig(); got != beforeDetection {
			t.Errorf("detection changed: %+v", got)
		}
		if got := rt.ControllerConfig(); got != beforeController {
			t.Errorf("controller changed: %+v", got)
		}
	})
}

func TestStateHandler_Config_RejectedKeepsActiveProfile(t *testing.T) {
	s := newTestStore(t)
	rt := newTestRuntime(t, s)
	h := NewStateHandler(rt)

	p := createProfile(t, NewProfileHandler(s, rt), map[string]string{"name": "kept"})
	if err := rt.ApplyProfile(p.ID); err != nil {
		t.Fatalf("ApplyProfile() error = %v", err)
	}

	body := map[string]interface{}{
		"detection": map[string]interface{}{"acquire_frames": 7},
		"preset":    "impossible",
	}
	rec := doRequest(t, h.Config, http.MethodPut, "/api/config", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if rt.ActiveProfile() != p.ID {
		t.Errorf("active profile = %q, want %q", rt.ActiveProfile(), p.ID)
	}
}

func TestStateHandler_Calibrate_NoUser(t *testing.T) {
	h := NewStateHandler(newTestRuntime(t, nil))

	rec := doRequest(t, h.Calibrate, http.MethodPost, "/api/calibrate", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	rec = doRequest(t, h.Calibrate, http.MethodGet, "/api/calibrate", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestStateHandler_Enabled(t *testing.T) {
	rt := newTestRuntime(t, nil)
	h := NewStateHandler(rt)

	rec := doRequest(t, h.Enabled, http.MethodPut, "/api/enabled", map[string]bool{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rt.IsEnabled() {
		t.Error("runtime should be disabled")
	}

	rec = doRequest(t, h.Enabled, http.MethodPut, "/api/enabled", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing field: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = doRequest(t, h.Enabled, http.MethodGet, "/api/enabled", nil)
	var resp enabledResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Enabled {
		t.Error("GET should report disabled")
	}
}
