//go:build !windows && !linux

package target

import "image"

// Window enumeration is only implemented for Windows and X11.
// Display targets still work everywhere kbinani/screenshot does.
func listWindows() ([]Target, error) {
	return nil, nil
}

func windowBounds(t Target) (image.Rectangle, bool) {
	return t.Bounds, true
}
