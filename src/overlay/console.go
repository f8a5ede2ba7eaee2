package overlay

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"
)

// Console is the presenter for platforms without a native overlay
// window. It prints the result and keeps the same lifecycle contract
// as the windowed presenter, which also makes the pipeline testable
// headless.
type Console struct {
	opts Options

	mu      sync.Mutex
	visible bool
	timer   *time.Timer
}

func NewConsole(opts Options) *Console {
	return &Console{opts: opts}
}

func (c *Console) Show(text string, origin image.Rectangle, failed bool) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.visible = true
	if c.opts.AutoDismiss > 0 {
		c.timer = time.AfterFunc(c.opts.AutoDismiss, c.expire)
	}
	c.mu.Unlock()

	header := fmt.Sprintf("analysis of %dx%d at (%d,%d)",
		origin.Dx(), origin.Dy(), origin.Min.X, origin.Min.Y)
	if failed {
		header = "analysis failed"
	}
	fmt.Fprintf(os.Stderr, "\n--- %s ---\n%s\n\n", header, text)
}

// Dismiss hides the overlay without firing OnDismissed; the pipeline
// calls it when it already knows the overlay is going away.
func (c *Console) Dismiss() {
	c.hide()
}

// Visible reports whether something is currently shown.
func (c *Console) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Console) expire() {
	if c.hide() && c.opts.OnDismissed != nil {
		c.opts.OnDismissed()
	}
}

func (c *Console) hide() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return false
	}
	c.visible = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return true
}
