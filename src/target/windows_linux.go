//go:build linux

package target

import (
	"image"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// listWindows shells out to xwininfo, the same tool window managers ship
// for scripting. No X connection is held open between calls.
func listWindows() ([]Target, error) {
	out, err := exec.Command("xwininfo", "-root", "-tree").Output()
	if err != nil {
		// No X server or xwininfo missing. Displays remain usable.
		return nil, nil
	}
	return parseWindowTree(string(out)), nil
}

// treeLine matches entries like:
//
//	0x2a00010 "Firefox": ("Navigator" "Firefox")  1916x1041+2+37  +2+37
//
// Geometry is WxH+relX+relY followed by the absolute +X+Y position.
var treeLine = regexp.MustCompile(`^\s+(0x[0-9a-fA-F]+)\s+"(.+)":\s+\(.*\)\s+(\d+)x(\d+)[+-][0-9-]+[+-][0-9-]+\s+\+(-?\d+)\+(-?\d+)\s*$`)

func parseWindowTree(out string) []Target {
	var targets []Target
	for _, line := range strings.Split(out, "\n") {
		m := treeLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.ParseUint(m[1], 0, 64)
		if err != nil {
			continue
		}
		w, _ := strconv.Atoi(m[3])
		h, _ := strconv.Atoi(m[4])
		x, _ := strconv.Atoi(m[5])
		y, _ := strconv.Atoi(m[6])
		if w <= 1 || h <= 1 {
			continue
		}
		targets = append(targets, Target{
			Kind:   KindWindow,
			ID:     id,
			Title:  m[2],
			Bounds: image.Rect(x, y, x+w, y+h),
		})
	}
	return targets
}

// windowBounds re-queries one window by id.
func windowBounds(t Target) (image.Rectangle, bool) {
	out, err := exec.Command("xwininfo", "-id", "0x"+strconv.FormatUint(t.ID, 16)).Output()
	if err != nil {
		return image.Rectangle{}, false
	}
	return parseWindowInfo(string(out))
}

func parseWindowInfo(out string) (image.Rectangle, bool) {
	var x, y, w, h int
	var haveX, haveY, haveW, haveH bool
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Absolute upper-left X:"):
			x, haveX = parseInfoValue(line)
		case strings.HasPrefix(line, "Absolute upper-left Y:"):
			y, haveY = parseInfoValue(line)
		case strings.HasPrefix(line, "Width:"):
			w, haveW = parseInfoValue(line)
		case strings.HasPrefix(line, "Height:"):
			h, haveH = parseInfoValue(line)
		}
	}
	if !haveX || !haveY || !haveW || !haveH || w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}

func parseInfoValue(line string) (int, bool) {
	i := strings.LastIndexByte(line, ':')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
	if err != nil {
		return 0, false
	}
	return n, true
}
