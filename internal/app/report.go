package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayusman/holdsense/internal/detector"
	"github.com/ayusman/holdsense/internal/hold"
)

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "--"
}

// Report renders a plain-text breakdown of the holding conditions for one tick.
func Report(out hold.Output, cfg hold.Config, body detector.Body) string {
	var b strings.Builder

	fmt.Fprintf(&b, "user tracked: %s\n", mark(out.Tracked))
	if !out.Tracked {
		b.WriteString("stand 1.5-3 m in front of the sensor, facing it\n")
		return b.String()
	}

	fmt.Fprintf(&b, "holding: %s\n", mark(out.Holding))
	fmt.Fprintf(&b, "feedback: %s", FeedbackFor(out))
	if FeedbackFor(out) == FeedbackBothHandsVisible {
		fmt.Fprintf(&b, " (%d/%d frames)", out.Diagnostics.DetectionFrames, cfg.AcquireFrames)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "policy: %s\n", cfg.Policy)

	leftTracked := body.IsTracked(detector.HandLeft)
	rightTracked := body.IsTracked(detector.HandRight)
	fmt.Fprintf(&b, "hands tracked: %s (left %s, right %s)\n",
		mark(leftTracked && rightTracked), mark(leftTracked), mark(rightTracked))

	if cfg.Policy == hold.PolicyPermissive {
		writePermissive(&b, out, cfg)
	} else {
		writeStrict(&b, out, cfg, body)
	}

	c := out.Center
	fmt.Fprintf(&b, "center: (%.2f, %.2f, %.2f) via %s\n", c.X, c.Y, c.Z, out.Diagnostics.Resolution)
	fmt.Fprintf(&b, "hands: left %s, right %s\n", out.LeftState, out.RightState)

	return b.String()
}

func writePermissive(b *strings.Builder, out hold.Output, cfg hold.Config) {
	if !cfg.UseMemory {
		b.WriteString("memory: off, two hands required\n")
		return
	}

	if out.Diagnostics.MemoryValid {
		fmt.Fprintf(b, "memory: %.1fs old\n", out.Diagnostics.MemoryAge.Seconds())
	} else {
		b.WriteString("memory: none\n")
	}
	fmt.Fprintf(b, "single hand fallback: %s\n", mark(cfg.SingleHandFallback))
	fmt.Fprintf(b, "jump prevention: %s\n", mark(cfg.PreventJumps))
}

func writeStrict(b *strings.Builder, out hold.Output, cfg hold.Config, body detector.Body) {
	checks := out.Diagnostics.Verdict.Checks
	if len(checks) == 0 {
		checks = hold.StrictChecks(hold.BuildSnapshot(body, time.Time{}), cfg)
	}

	byName := make(map[string]hold.Check, len(checks))
	for _, c := range checks {
		byName[c.Name] = c
	}

	d := byName[hold.CheckDistance]
	fmt.Fprintf(b, "hand distance: %s %.2fm <= %.2fm\n", mark(d.Passed), d.Value, d.Limit)

	hl, hr := byName[hold.CheckHeightLeft], byName[hold.CheckHeightRight]
	fmt.Fprintf(b, "hand height: %s left %.2fm, right %.2fm >= %.2fm\n",
		mark(hl.Passed && hr.Passed), hl.Value, hr.Value, hl.Limit)

	g := byName[hold.CheckGrip]
	fmt.Fprintf(b, "grip: %s left %s, right %s\n", mark(g.Passed), out.LeftState, out.RightState)

	fl, fr := byName[hold.CheckForwardLeft], byName[hold.CheckForwardRight]
	fmt.Fprintf(b, "in front of body: %s (left %s, right %s)\n",
		mark(fl.Passed && fr.Passed), mark(fl.Passed), mark(fr.Passed))

	diag := out.Diagnostics
	fmt.Fprintf(b, "stability: %s %d/%d frames (lost %d)\n",
		mark(diag.DetectionFrames >= cfg.AcquireFrames), diag.DetectionFrames, cfg.AcquireFrames, diag.NonDetectionFrames)
}
