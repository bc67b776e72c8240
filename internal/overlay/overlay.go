// Package overlay draws the hold detector state as a 2D debug image.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/detector"
	"github.com/ayusman/holdsense/internal/hold"
)

// Gizmo colours.
var (
	ColorBackground = color.RGBA{R: 24, G: 24, B: 24, A: 0}
	ColorSkeleton   = color.RGBA{R: 110, G: 110, B: 110, A: 0}
	ColorLeftHand   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	ColorRightHand  = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	ColorHolding    = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	ColorCandidate  = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	ColorCenter     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	ColorTooFar     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	ColorText       = color.RGBA{R: 230, G: 230, B: 230, A: 0}
)

const (
	handRadius   = 10
	centerRadius = 14
	jointRadius  = 5
)

// Options control the image size and projection.
type Options struct {
	Width  int
	Height int
	// Scale is pixels per metre.
	Scale float64
}

// DefaultOptions returns a 640x480 view at 400 px/m.
func DefaultOptions() Options {
	return Options{Width: 640, Height: 480, Scale: 400}
}

// Renderer draws overlay frames. It is safe for concurrent use.
type Renderer struct {
	opts Options
}

// NewRenderer creates a Renderer. Zero fields in opts take default values.
func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Scale <= 0 {
		opts.Scale = def.Scale
	}
	return &Renderer{opts: opts}
}

// Options returns the renderer options.
func (r *Renderer) Options() Options {
	return r.opts
}

// Project maps a sensor-space point onto the image with an orthographic
// x/y projection centred on the sensor axis. Depth is ignored.
func (r *Renderer) Project(p detector.Point3D) image.Point {
	return image.Point{
		X: r.opts.Width/2 + int(p.X*r.opts.Scale),
		Y: r.opts.Height/2 - int(p.Y*r.opts.Scale),
	}
}

// Render draws st into a new BGR image. The caller must Close the result.
func (r *Renderer) Render(st app.Status, cfg hold.Config) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(scalar(ColorBackground), r.opts.Height, r.opts.Width, gocv.MatTypeCV8UC3)

	out := st.Output
	if out.Tracked {
		r.drawSkeleton(&img, st.Body)
		r.drawHands(&img, st.Body, out, cfg)

		candidate := ColorCandidate
		if out.Holding {
			candidate = ColorHolding
		}
		gocv.Circle(&img, r.Project(out.Candidate), centerRadius, candidate, 2)
		gocv.Circle(&img, r.Project(out.Center), centerRadius/2, ColorCenter, -1)
	}

	gocv.PutText(&img, Caption(st), image.Point{X: 10, Y: 24}, gocv.FontHersheySimplex, 0.6, ColorText, 1)
	if out.Tracked {
		detail := fmt.Sprintf("distance %.2fm  left %s  right %s", out.HandDistance, out.LeftState, out.RightState)
		gocv.PutText(&img, detail, image.Point{X: 10, Y: r.opts.Height - 12}, gocv.FontHersheySimplex, 0.5, ColorText, 1)
	}

	return img
}

func (r *Renderer) drawSkeleton(img *gocv.Mat, body detector.Body) {
	spine := []detector.JointType{detector.Head, detector.SpineMid, detector.SpineBase}
	for i, j := range spine {
		if !body.IsTracked(j) {
			continue
		}
		gocv.Circle(img, r.Project(body.Position(j)), jointRadius, ColorSkeleton, -1)
		if i > 0 && body.IsTracked(spine[i-1]) {
			gocv.Line(img, r.Project(body.Position(spine[i-1])), r.Project(body.Position(j)), ColorSkeleton, 2)
		}
	}
}

func (r *Renderer) drawHands(img *gocv.Mat, body detector.Body, out hold.Output, cfg hold.Config) {
	left := body.IsTracked(detector.HandLeft)
	right := body.IsTracked(detector.HandRight)

	if left && right {
		line := ColorHolding
		if out.HandDistance > cfg.MaxHandDistance {
			line = ColorTooFar
		}
		gocv.Line(img, r.Project(out.Left), r.Project(out.Right), line, 2)
	}
	if left {
		gocv.Circle(img, r.Project(out.Left), handRadius, ColorLeftHand, thickness(out.LeftClosed))
	}
	if right {
		gocv.Circle(img, r.Project(out.Right), handRadius, ColorRightHand, thickness(out.RightClosed))
	}
}

// thickness fills closed hands and outlines open ones.
func thickness(closed bool) int {
	if closed {
		return -1
	}
	return 2
}

// Encode renders st and returns it as a JPEG image.
func (r *Renderer) Encode(st app.Status, cfg hold.Config) ([]byte, error) {
	img := r.Render(st, cfg)
	defer img.Close()

	buf, err := gocv.IMEncode(".jpg", img)
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Caption is the one-line status shown at the top of the overlay.
func Caption(st app.Status) string {
	switch {
	case !st.Enabled:
		return "DISABLED"
	case !st.Output.Tracked:
		return "NO USER"
	case st.Output.Holding:
		return fmt.Sprintf("HOLDING  x=%+.2f", st.Position.X)
	case st.Feedback == app.FeedbackBothHandsVisible:
		return fmt.Sprintf("HANDS VISIBLE %d frames", st.Output.Diagnostics.DetectionFrames)
	default:
		return "IDLE"
	}
}

func scalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}
