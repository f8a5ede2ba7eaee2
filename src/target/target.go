// Package target resolves capture targets: whole virtual screen,
// individual displays, or top-level windows matched by title.
package target

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"
)

// Kind distinguishes display targets from window targets.
type Kind int

const (
	KindScreen Kind = iota
	KindWindow
)

func (k Kind) String() string {
	switch k {
	case KindScreen:
		return "screen"
	case KindWindow:
		return "window"
	default:
		return "unknown"
	}
}

// ErrTargetUnavailable reports that the selected target no longer exists
// (window closed, display detached). Callers fall back to the whole screen.
var ErrTargetUnavailable = errors.New("capture target unavailable")

// virtualID marks the union-of-all-displays pseudo target.
const virtualID = ^uint64(0)

// Target describes one capturable surface. It is a snapshot: bounds are
// re-resolved on every capture request, never cached across requests.
type Target struct {
	Kind   Kind
	ID     uint64 // display index, or platform window id
	Title  string
	Bounds image.Rectangle
}

func (t Target) String() string {
	b := t.Bounds
	return fmt.Sprintf("%s %q %dx%d at (%d,%d)", t.Kind, t.Title, b.Dx(), b.Dy(), b.Min.X, b.Min.Y)
}

// VirtualScreen returns a target covering the union of all active displays.
func VirtualScreen() (Target, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Target{}, fmt.Errorf("no active displays: %w", ErrTargetUnavailable)
	}
	bounds := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	return Target{Kind: KindScreen, ID: virtualID, Title: "Virtual screen", Bounds: bounds}, nil
}

// Displays enumerates the active displays.
func Displays() ([]Target, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays: %w", ErrTargetUnavailable)
	}
	out := make([]Target, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Target{
			Kind:   KindScreen,
			ID:     uint64(i),
			Title:  fmt.Sprintf("Display %d", i),
			Bounds: screenshot.GetDisplayBounds(i),
		})
	}
	return out, nil
}

// List returns displays followed by visible top-level windows.
// The window list is re-enumerated on every call.
func List() ([]Target, error) {
	displays, err := Displays()
	if err != nil {
		return nil, err
	}
	windows, err := listWindows()
	if err != nil {
		return displays, err
	}
	return append(displays, windows...), nil
}

// Resolve maps a selection string to a concrete target:
//
//	""          whole virtual screen
//	"screen"    whole virtual screen
//	"screen:N"  display N
//	anything    case-insensitive window title substring
func Resolve(selection string) (Target, error) {
	sel := strings.TrimSpace(selection)
	if sel == "" || strings.EqualFold(sel, "screen") {
		return VirtualScreen()
	}
	if idx, ok := parseScreenSelector(sel); ok {
		displays, err := Displays()
		if err != nil {
			return Target{}, err
		}
		if idx < 0 || idx >= len(displays) {
			return Target{}, fmt.Errorf("display %d: %w", idx, ErrTargetUnavailable)
		}
		return displays[idx], nil
	}
	windows, err := listWindows()
	if err != nil {
		return Target{}, err
	}
	if t, ok := matchWindow(windows, sel); ok {
		return t, nil
	}
	return Target{}, fmt.Errorf("window %q: %w", sel, ErrTargetUnavailable)
}

// CurrentBounds re-reads a target's bounds from the platform. ok=false
// means the target is gone.
func CurrentBounds(t Target) (image.Rectangle, bool) {
	switch t.Kind {
	case KindScreen:
		if t.ID == virtualID {
			v, err := VirtualScreen()
			if err != nil {
				return image.Rectangle{}, false
			}
			return v.Bounds, true
		}
		if int(t.ID) >= screenshot.NumActiveDisplays() {
			return image.Rectangle{}, false
		}
		return screenshot.GetDisplayBounds(int(t.ID)), true
	case KindWindow:
		return windowBounds(t)
	}
	return image.Rectangle{}, false
}

func parseScreenSelector(sel string) (int, bool) {
	const prefix = "screen:"
	if len(sel) <= len(prefix) || !strings.EqualFold(sel[:len(prefix)], prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(sel[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// matchWindow prefers an exact (case-insensitive) title match, then the
// first substring match in enumeration order.
func matchWindow(windows []Target, sel string) (Target, bool) {
	needle := strings.ToLower(sel)
	var substring *Target
	for i := range windows {
		title := strings.ToLower(windows[i].Title)
		if title == needle {
			return windows[i], true
		}
		if substring == nil && strings.Contains(title, needle) {
			substring = &windows[i]
		}
	}
	if substring != nil {
		return *substring, true
	}
	return Target{}, false
}
