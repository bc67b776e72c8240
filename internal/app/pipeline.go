package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/holdsense/internal/detector"
	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/log"
	"github.com/ayusman/holdsense/internal/plugin"
	"github.com/ayusman/holdsense/internal/store"
)

// runPipeline is the main detection loop. Every tick it polls the source,
// advances the detector and controller, and publishes the result.
//
// A failed poll counts as "no user" for that tick, which resets the
// detector. The loop never exits on a tick error; only stopCh ends it.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			a.tick(now)
		}
	}
}

// tick runs one pipeline step at now.
func (a *App) tick(now time.Time) {
	a.mu.RLock()
	enabled, src := a.enabled, a.source
	a.mu.RUnlock()

	if !enabled || src == nil {
		return
	}

	body, err := src.Poll()
	if err != nil {
		if !errors.Is(err, detector.ErrSourceClosed) {
			log.Warn("source poll failed", "err", err)
		}
		body = detector.NoBody()
	}

	a.mu.Lock()
	dt := time.Second / time.Duration(a.config.FPS)
	if !a.lastTick.IsZero() {
		dt = now.Sub(a.lastTick)
	}
	a.lastTick = now

	wasHolding := a.detector.Output().Holding
	out := a.detector.Tick(hold.Input{Body: body, Now: now, Delta: dt})

	pos, err := a.controller.Update(out, dt)
	if err != nil {
		log.Warn("controller update failed", "err", err)
	}

	if a.recorder != nil {
		a.recorder.add(now, body)
	}

	a.status = Status{
		Output:    out,
		Body:      body,
		Position:  pos,
		Feedback:  a.controller.Feedback(),
		Offsets:   a.controller.Offsets(),
		Enabled:   a.enabled,
		Recording: a.recorder != nil,
		ProfileID: a.profileID,
		Timestamp: now,
	}
	st := a.status
	transitions := append([]TransitionFunc(nil), a.transitions...)
	a.mu.Unlock()

	if a.config.DebugLogs {
		logTick(out)
	}

	if out.Holding == wasHolding {
		return
	}

	event := plugin.EventHoldReleased
	if out.Holding {
		event = plugin.EventHoldAcquired
		log.Info("hold acquired",
			"center", out.Center,
			"handDistance", out.HandDistance,
			"rule", string(out.Diagnostics.Verdict.Rule))
	} else {
		log.Info("hold released",
			"center", out.Center,
			"rule", string(out.Diagnostics.Verdict.Rule))
	}

	for _, fn := range transitions {
		fn(event, st)
	}
	a.dispatch(event, out, now)
}

func logTick(out hold.Output) {
	memoryAge := -1.0
	if out.Diagnostics.MemoryAge >= 0 {
		memoryAge = out.Diagnostics.MemoryAge.Seconds()
	}
	log.Debug("hold tick",
		"holding", out.Holding,
		"handDistance", out.HandDistance,
		"leftHand", out.LeftState.String(),
		"rightHand", out.RightState.String(),
		"detectionFrames", out.Diagnostics.DetectionFrames,
		"memoryAge", memoryAge)
}

// dispatch runs the plugins subscribed to event without blocking the pipeline.
func (a *App) dispatch(event string, out hold.Output, now time.Time) {
	if len(a.pluginMgr.ForEvent(event)) == 0 {
		return
	}

	req := &plugin.Request{
		Event:        event,
		Center:       out.Center,
		HandDistance: out.HandDistance,
		Timestamp:    now,
	}

	a.hooks.Add(1)
	go func() {
		defer a.hooks.Done()
		if err := a.pluginExec.Dispatch(context.Background(), a.pluginMgr, req); err != nil {
			log.Warn("plugin dispatch failed", "event", event, "err", err)
		}
	}()
}

// Recalibrate makes the current hold center the controller origin and
// stores the new offsets.
func (a *App) Recalibrate() (Offsets, error) {
	a.mu.Lock()
	out := a.detector.Output()
	offsets, err := a.controller.Calibrate(out)
	if err == nil {
		a.status.Offsets = offsets
	}
	a.mu.Unlock()

	if err != nil {
		return offsets, err
	}

	log.Info("calibrated", "offsetX", offsets.X, "offsetY", offsets.Y)

	if a.config.Store != nil {
		c := &store.Calibration{ID: uuid.New().String(), OffsetX: offsets.X, OffsetY: offsets.Y}
		if err := a.config.Store.Calibrations().Create(c); err != nil {
			log.Warn("failed to save calibration", "err", err)
		}
	}

	a.dispatch(plugin.EventCalibrated, out, time.Now())
	return offsets, nil
}
