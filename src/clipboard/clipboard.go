// Package clipboard delivers analysis text to the system clipboard.
package clipboard

import (
	"fmt"
	"sync"

	xclip "golang.design/x/clipboard"
)

var (
	mu    sync.Mutex
	ready bool
)

// Init must be called once before Write. It fails on systems without a
// clipboard (headless X, no display).
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}
	if err := xclip.Init(); err != nil {
		return fmt.Errorf("clipboard init: %w", err)
	}
	ready = true
	return nil
}

// Write replaces the clipboard text.
func Write(text string) error {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return fmt.Errorf("clipboard not initialized")
	}
	xclip.Write(xclip.FmtText, []byte(text))
	return nil
}
