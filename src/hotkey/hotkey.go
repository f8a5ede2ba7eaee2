// Package hotkey fires a callback when a global key combination is
// pressed. Combos are written like "Ctrl+Alt+S"; matching is done on
// raw keycodes so left and right modifiers both count.
package hotkey

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	hook "github.com/robotn/gohook"
)

// Listen registers the combo and blocks feeding hook events until the
// hook channel closes. Run it on its own goroutine.
func Listen(combo string, onPress func()) error {
	keys := parseCombo(combo)
	if len(keys) == 0 {
		return fmt.Errorf("empty hotkey %q", combo)
	}
	codes := make([][]uint16, len(keys))
	for i, name := range keys {
		rc := keyRawcodes(name)
		if rc == nil {
			return fmt.Errorf("unknown key %q in hotkey %q", name, combo)
		}
		codes[i] = rc
	}
	log.Printf("hotkey registered: %s", combo)

	down := make(map[uint16]bool)
	fired := false
	evts := hook.Start()
	defer hook.End()
	for ev := range evts {
		switch ev.Kind {
		case hook.KeyDown, hook.KeyHold:
			down[ev.Rawcode] = true
			if allPressed(codes, down) {
				if !fired {
					fired = true
					onPress()
				}
			}
		case hook.KeyUp:
			delete(down, ev.Rawcode)
			if !allPressed(codes, down) {
				fired = false
			}
		}
	}
	return nil
}

// allPressed reports whether every combo key has at least one of its
// rawcode variants down.
func allPressed(codes [][]uint16, down map[uint16]bool) bool {
	for _, variants := range codes {
		hit := false
		for _, rc := range variants {
			if down[rc] {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func parseCombo(combo string) []string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")
	var keys []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// Normalize the Windows-key aliases.
		if p == "win" || p == "super" {
			p = "cmd"
		}
		keys = append(keys, p)
	}
	return keys
}

// keyRawcodes maps a key name to its Windows virtual-key codes. Keys
// with left/right variants return both.
func keyRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{162, 163}
	case "alt":
		return []uint16{164, 165}
	case "shift":
		return []uint16{160, 161}
	case "cmd", "win", "super":
		return []uint16{91, 92}
	case "space":
		return []uint16{32}
	case "enter":
		return []uint16{13}
	case "esc":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete":
		return []uint16{46}
	case "insert":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup":
		return []uint16{33}
	case "pagedown":
		return []uint16{34}
	case "printscreen":
		return []uint16{44}
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}
	return nil
}
