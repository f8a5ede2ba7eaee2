package capture

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"screensnap/src/target"
)

func solidFrame(bounds image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for i := range img.Pix {
		img.Pix[i] = 0x7f
	}
	return img
}

func fixedWindow(bounds image.Rectangle) target.Target {
	return target.Target{Kind: target.KindWindow, ID: 42, Title: "Editor", Bounds: bounds}
}

func TestCaptureOriginMatchesBounds(t *testing.T) {
	bounds := image.Rect(100, 50, 740, 530)
	c := &Capturer{
		grab:   func(r image.Rectangle) (*image.RGBA, error) { return solidFrame(r), nil },
		bounds: func(target.Target) (image.Rectangle, bool) { return bounds, true },
	}

	res, err := c.Capture(fixedWindow(bounds))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Origin != bounds {
		t.Errorf("origin = %v, want %v", res.Origin, bounds)
	}
	if got := res.Image.Bounds(); got.Dx() != bounds.Dx() || got.Dy() != bounds.Dy() {
		t.Errorf("image size = %dx%d, want %dx%d", got.Dx(), got.Dy(), bounds.Dx(), bounds.Dy())
	}
}

func TestCaptureRetriesOnceOnGeometryChange(t *testing.T) {
	old := image.Rect(0, 0, 640, 480)
	grown := image.Rect(0, 0, 800, 600)
	grabs := 0
	c := &Capturer{
		grab: func(r image.Rectangle) (*image.RGBA, error) {
			grabs++
			return solidFrame(r), nil
		},
		// Bounds settle on the grown rect after the first grab.
		bounds: func(target.Target) (image.Rectangle, bool) { return grown, true },
	}

	res, err := c.Capture(fixedWindow(old))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if grabs != 2 {
		t.Errorf("grabs = %d, want 2 (one retry)", grabs)
	}
	if res.Origin != grown {
		t.Errorf("origin = %v, want the re-read bounds %v", res.Origin, grown)
	}
}

func TestCaptureFailsAfterSecondGeometryChange(t *testing.T) {
	sizes := []image.Rectangle{
		image.Rect(0, 0, 640, 480),
		image.Rect(0, 0, 800, 600),
		image.Rect(0, 0, 810, 610),
	}
	i := 0
	c := &Capturer{
		grab: func(r image.Rectangle) (*image.RGBA, error) { return solidFrame(r), nil },
		bounds: func(target.Target) (image.Rectangle, bool) {
			i++
			return sizes[i%len(sizes)], true
		},
	}

	_, err := c.Capture(fixedWindow(sizes[0]))
	if !errors.Is(err, ErrGeometryChanged) {
		t.Errorf("err = %v, want ErrGeometryChanged", err)
	}
}

func TestCaptureTargetVanishes(t *testing.T) {
	c := &Capturer{
		grab:   func(r image.Rectangle) (*image.RGBA, error) { return solidFrame(r), nil },
		bounds: func(target.Target) (image.Rectangle, bool) { return image.Rectangle{}, false },
	}

	_, err := c.Capture(fixedWindow(image.Rect(0, 0, 100, 100)))
	if !errors.Is(err, target.ErrTargetUnavailable) {
		t.Errorf("err = %v, want ErrTargetUnavailable", err)
	}
}

func TestCaptureWrapsIOErrors(t *testing.T) {
	ioErr := errors.New("GetDIBits failed")
	c := &Capturer{
		grab:   func(r image.Rectangle) (*image.RGBA, error) { return nil, ioErr },
		bounds: func(target.Target) (image.Rectangle, bool) { return image.Rectangle{}, true },
	}

	_, err := c.Capture(fixedWindow(image.Rect(0, 0, 100, 100)))
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %T, want *CaptureError", err)
	}
	if !errors.Is(err, ioErr) {
		t.Error("CaptureError should wrap the underlying error")
	}
}

func TestCaptureEmptyBounds(t *testing.T) {
	c := New()
	_, err := c.Capture(fixedWindow(image.Rectangle{}))
	var ce *CaptureError
	if !errors.As(err, &ce) {
		t.Errorf("err = %v, want *CaptureError", err)
	}
}

func TestResultPNG(t *testing.T) {
	res := &Result{Image: solidFrame(image.Rect(0, 0, 8, 4)), Origin: image.Rect(10, 10, 18, 14)}
	data, err := res.PNG()
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("decoded size = %dx%d, want 8x4", b.Dx(), b.Dy())
	}
}
