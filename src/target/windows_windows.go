//go:build windows

package target

import (
	"image"
	"strings"
	"syscall"
	"unsafe"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	user32                       = syscall.NewLazyDLL("user32.dll")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsIconic                 = user32.NewProc("IsIconic")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

// listWindows enumerates visible, non-minimized top-level windows.
func listWindows() ([]Target, error) {
	var out []Target
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if t, ok := describeWindow(hwnd); ok {
			out = append(out, t)
		}
		return 1 // continue enumeration
	})
	procEnumWindows.Call(cb, 0)
	return out, nil
}

func describeWindow(hwnd uintptr) (Target, bool) {
	if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
		return Target{}, false
	}
	if iconic, _, _ := procIsIconic.Call(hwnd); iconic != 0 {
		return Target{}, false
	}
	title := windowText(hwnd)
	if title == "" {
		// Untitled windows are still selectable via the owning process name.
		title = ownerProcessName(hwnd)
	}
	if title == "" {
		return Target{}, false
	}
	bounds, ok := rectOf(hwnd)
	if !ok || bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Target{}, false
	}
	return Target{Kind: KindWindow, ID: uint64(hwnd), Title: title, Bounds: bounds}, true
}

func windowText(hwnd uintptr) string {
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return strings.TrimSpace(syscall.UTF16ToString(buf[:n]))
}

func ownerProcessName(hwnd uintptr) string {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return ""
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := proc.Name()
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(name, ".exe")
}

func rectOf(hwnd uintptr) (image.Rectangle, bool) {
	var r winRect
	ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), true
}

// windowBounds re-reads the live rect of a window target.
func windowBounds(t Target) (image.Rectangle, bool) {
	return rectOf(uintptr(t.ID))
}
