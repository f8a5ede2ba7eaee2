//go:build windows

package main

import "syscall"

// enableDPIAwareness keeps capture coordinates in real pixels on
// scaled displays. Per-monitor awareness when Shcore is available,
// system-wide otherwise.
func enableDPIAwareness() {
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if setProcessDpiAwareness.Find() == nil {
		const processPerMonitorDpiAware = 2
		setProcessDpiAwareness.Call(processPerMonitorDpiAware)
		return
	}
	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if setProcessDPIAware.Find() == nil {
		setProcessDPIAware.Call()
	}
}
