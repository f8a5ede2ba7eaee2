// Package overlay renders analysis results on a borderless, topmost,
// semi-transparent surface anchored to the captured region.
package overlay

import (
	"image"
	"sync"
	"time"
)

// Presenter is what the pipeline drives. Show replaces the current
// surface; Dismiss hides it and is safe to call repeatedly.
type Presenter interface {
	Show(text string, origin image.Rectangle, failed bool)
	Dismiss()
}

// Options configures the platform presenter.
type Options struct {
	// AutoDismiss hides the overlay after this long without interaction.
	// Hovering the surface restarts the countdown. Zero disables it.
	AutoDismiss time.Duration

	AlwaysOnTop bool

	// OnDismissed fires once per shown overlay when the user clicks it
	// away or the countdown expires. It is not called for Dismiss().
	OnDismissed func()
}

// contentSeq tracks content handed to a presenter against content a
// display run has picked up. A Show can race a surface teardown and
// miss the surface's message queue; the sequence lets the display
// thread spot content no surface ever took and open a fresh one
// instead of dropping it.
type contentSeq struct {
	mu    sync.Mutex
	given uint64
	taken uint64
}

func (c *contentSeq) bump() {
	c.mu.Lock()
	c.given++
	c.mu.Unlock()
}

func (c *contentSeq) take() {
	c.mu.Lock()
	c.taken = c.given
	c.mu.Unlock()
}

func (c *contentSeq) pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.given > c.taken
}
