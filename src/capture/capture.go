// Package capture grabs pixels for a resolved target and guarantees that
// the returned image and its origin rectangle describe the same geometry.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"

	"screensnap/src/target"
)

// ErrGeometryChanged reports that the target moved or resized while its
// pixels were being read, twice in a row.
var ErrGeometryChanged = errors.New("target geometry changed during capture")

// CaptureError wraps platform I/O failures from the screenshot layer.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return "capture failed: " + e.Err.Error() }
func (e *CaptureError) Unwrap() error { return e.Err }

// Result is one captured frame. Origin is the target's bounds at the
// moment the pixels were read, in virtual-screen coordinates.
type Result struct {
	Image  *image.RGBA
	Origin image.Rectangle
}

// PNG encodes the frame for transport to a backend.
func (r *Result) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Image); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Capturer reads frames from the platform. The function fields exist so
// tests can substitute the pixel source and the bounds query.
type Capturer struct {
	grab   func(image.Rectangle) (*image.RGBA, error)
	bounds func(target.Target) (image.Rectangle, bool)
}

// New returns a Capturer backed by the real screen.
func New() *Capturer {
	return &Capturer{
		grab:   screenshot.CaptureRect,
		bounds: target.CurrentBounds,
	}
}

// Capture grabs the target's pixels, then re-reads the target's bounds.
// A mismatch means the grab raced a move or resize: the capture is redone
// once with the fresh bounds, and a second mismatch fails with
// ErrGeometryChanged. Image and Origin therefore always agree.
func (c *Capturer) Capture(t target.Target) (*Result, error) {
	bounds := t.Bounds
	if bounds.Empty() {
		return nil, &CaptureError{Err: fmt.Errorf("empty bounds for %s", t)}
	}
	for attempt := 0; ; attempt++ {
		img, err := c.grab(bounds)
		if err != nil {
			return nil, &CaptureError{Err: err}
		}
		current, ok := c.bounds(t)
		if !ok {
			return nil, fmt.Errorf("%s vanished during capture: %w", t.Kind, target.ErrTargetUnavailable)
		}
		if current == bounds {
			return &Result{Image: img, Origin: bounds}, nil
		}
		if attempt >= 1 {
			return nil, fmt.Errorf("%w: bounds moved %v -> %v", ErrGeometryChanged, bounds, current)
		}
		bounds = current
	}
}
