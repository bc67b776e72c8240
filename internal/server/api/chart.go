package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/holdsense/internal/hold"
	"github.com/ayusman/holdsense/internal/store"
)

// defaultFrameGap is the tick interval assumed for the first replayed frame.
const defaultFrameGap = 33 * time.Millisecond

// Evaluate replays frames through a fresh detector with cfg and returns one
// output per frame.
func Evaluate(frames []store.Frame, cfg hold.Config) []hold.Output {
	d := hold.NewDetector(cfg)
	base := time.Unix(0, 0)
	outputs := make([]hold.Output, 0, len(frames))

	prev := -defaultFrameGap
	for _, f := range frames {
		offset := time.Duration(f.OffsetMs) * time.Millisecond
		outputs = append(outputs, d.Tick(hold.Input{
			Body:  f.Body,
			Now:   base.Add(offset),
			Delta: offset - prev,
		}))
		prev = offset
	}
	return outputs
}

// chart handles GET /api/recordings/{id}/chart. The recording is replayed
// with the current detection config.
func (h *RecordingHandler) chart(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "recording")
		return
	}

	frames, err := h.store.Recordings().Frames(id)
	if err != nil {
		writeStoreError(w, err, "recording")
		return
	}

	cfg := hold.DefaultConfig()
	if h.runtime != nil {
		cfg = h.runtime.DetectionConfig()
	}
	outputs := Evaluate(frames, cfg)

	xs := make([]string, len(frames))
	distance := make([]opts.LineData, len(frames))
	holding := make([]opts.LineData, len(frames))
	centerX := make([]opts.LineData, len(frames))
	for i, out := range outputs {
		xs[i] = fmt.Sprintf("%.2f", float64(frames[i].OffsetMs)/1000)
		distance[i] = opts.LineData{Value: out.HandDistance}
		centerX[i] = opts.LineData{Value: out.Center.X}
		held := 0
		if out.Holding {
			held = 1
		}
		holding[i] = opts.LineData{Value: held}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Recording " + rec.Name, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: rec.Name, Subtitle: fmt.Sprintf("frames=%d policy=%s acquire=%d", rec.Frames, cfg.Policy, cfg.AcquireFrames)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
	)
	line.SetXAxis(xs).
		AddSeries("hand distance (m)", distance).
		AddSeries("holding", holding).
		AddSeries("center x (m)", centerX)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
