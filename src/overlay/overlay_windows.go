//go:build windows

package overlay

import (
	"image"
	"runtime"
	"sync"
	"syscall"
	"unsafe"
)

// New returns the native layered-window presenter.
func New(opts Options) Presenter {
	return &window{opts: opts, wake: make(chan struct{}, 1)}
}

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")
	gdi32    = syscall.NewLazyDLL("gdi32.dll")

	procRegisterClassExW           = user32.NewProc("RegisterClassExW")
	procCreateWindowExW            = user32.NewProc("CreateWindowExW")
	procDefWindowProcW             = user32.NewProc("DefWindowProcW")
	procDestroyWindow              = user32.NewProc("DestroyWindow")
	procPostQuitMessage            = user32.NewProc("PostQuitMessage")
	procGetMessageW                = user32.NewProc("GetMessageW")
	procTranslateMessage           = user32.NewProc("TranslateMessage")
	procDispatchMessageW           = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW         = user32.NewProc("PostThreadMessageW")
	procSetWindowPos               = user32.NewProc("SetWindowPos")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
	procSetTimer                   = user32.NewProc("SetTimer")
	procKillTimer                  = user32.NewProc("KillTimer")
	procBeginPaint                 = user32.NewProc("BeginPaint")
	procEndPaint                   = user32.NewProc("EndPaint")
	procInvalidateRect             = user32.NewProc("InvalidateRect")
	procGetClientRect              = user32.NewProc("GetClientRect")
	procDrawTextW                  = user32.NewProc("DrawTextW")
	procFillRect                   = user32.NewProc("FillRect")
	procSetTextColor               = user32.NewProc("SetTextColor")
	procSetBkMode                  = user32.NewProc("SetBkMode")
	procGetModuleHandleW           = kernel32.NewProc("GetModuleHandleW")
	procGetCurrentThreadId         = kernel32.NewProc("GetCurrentThreadId")
	procCreateSolidBrush           = gdi32.NewProc("CreateSolidBrush")
	procDeleteObject               = gdi32.NewProc("DeleteObject")
)

const (
	wsPopup   = 0x80000000
	wsVisible = 0x10000000

	wsExTopmost    = 0x00000008
	wsExToolWindow = 0x00000080
	wsExNoActivate = 0x08000000
	wsExLayered    = 0x00080000

	wmDestroy     = 0x0002
	wmPaint       = 0x000F
	wmEraseBkgnd  = 0x0014
	wmTimer       = 0x0113
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmMouseWheel  = 0x020A
	wmUser        = 0x0400

	// Thread messages; no window required.
	wmOverlayUpdate  = wmUser + 1
	wmOverlayDismiss = wmUser + 2

	lwaAlpha      = 0x2
	overlayAlpha  = 225
	swpNoActivate = 0x0010

	dtWordBreak = 0x0010
	transparent = 1

	dismissTimerID = 1

	bgColor     = 0x002b1e1e // COLORREF, 0x00BBGGRR
	bgFailColor = 0x002a2038
	textColor   = 0x00e8e8e8

	lineScroll = 18
)

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   uintptr
	Icon       uintptr
	Cursor     uintptr
	Background uintptr
	MenuName   *uint16
	ClassName  *uint16
	IconSm     uintptr
}

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type rect struct {
	Left, Top, Right, Bottom int32
}

type paintStruct struct {
	Hdc         uintptr
	Erase       int32
	RcPaint     rect
	Restore     int32
	IncUpdate   int32
	RgbReserved [32]byte
}

// window drives one overlay surface from a dedicated, locked OS thread
// with its own message loop. Show and Dismiss are callable from any
// goroutine; they hand work to the thread via shared content plus
// posted thread messages.
type window struct {
	opts Options

	startOnce sync.Once
	wake      chan struct{}
	seq       contentSeq

	mu       sync.Mutex
	text     string
	origin   image.Rectangle
	failed   bool
	scroll   int32
	threadID uintptr
	visible  bool
}

func (w *window) Show(text string, origin image.Rectangle, failed bool) {
	w.mu.Lock()
	w.text = text
	w.origin = origin
	w.failed = failed
	w.scroll = 0
	running := w.visible
	tid := w.threadID
	w.mu.Unlock()
	w.seq.bump()

	w.startOnce.Do(func() { go w.threadMain() })

	if running && tid != 0 {
		procPostThreadMessageW.Call(tid, wmOverlayUpdate, 0, 0)
	}
	// A window tearing down right now never sees the thread message.
	// The wake makes the thread re-check for untaken content after each
	// window run, so such a Show reopens instead of getting lost.
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *window) Dismiss() {
	w.mu.Lock()
	running := w.visible
	tid := w.threadID
	w.mu.Unlock()
	if running && tid != 0 {
		procPostThreadMessageW.Call(tid, wmOverlayDismiss, 0, 0)
	}
}

func (w *window) threadMain() {
	runtime.LockOSThread()
	tid, _, _ := procGetCurrentThreadId.Call()
	w.mu.Lock()
	w.threadID = tid
	w.mu.Unlock()

	className, _ := syscall.UTF16PtrFromString("ScreensnapOverlay")
	instance, _, _ := procGetModuleHandleW.Call(0)
	wc := wndClassEx{
		Size:      uint32(unsafe.Sizeof(wndClassEx{})),
		WndProc:   syscall.NewCallback(w.wndProc),
		Instance:  instance,
		ClassName: className,
	}
	procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc)))

	for range w.wake {
		for w.seq.pending() {
			w.runWindow(className, instance)
		}
	}
}

// runWindow creates the surface for the current content and pumps
// messages until it is destroyed.
func (w *window) runWindow(className *uint16, instance uintptr) {
	x, y, width, height := w.placement()

	exStyle := uintptr(wsExToolWindow | wsExNoActivate | wsExLayered)
	if w.opts.AlwaysOnTop {
		exStyle |= wsExTopmost
	}
	hwnd, _, _ := procCreateWindowExW.Call(
		exStyle,
		uintptr(unsafe.Pointer(className)),
		0,
		wsPopup|wsVisible,
		uintptr(x), uintptr(y), uintptr(width), uintptr(height),
		0, 0, instance, 0,
	)
	if hwnd == 0 {
		return
	}
	procSetLayeredWindowAttributes.Call(hwnd, 0, overlayAlpha, lwaAlpha)
	if w.opts.AlwaysOnTop {
		// HWND_TOPMOST
		procSetWindowPos.Call(hwnd, ^uintptr(0), uintptr(x), uintptr(y),
			uintptr(width), uintptr(height), swpNoActivate)
	}
	w.armTimer(hwnd)

	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
	w.seq.take()

	userDismissed := w.pump(hwnd)

	w.mu.Lock()
	w.visible = false
	w.mu.Unlock()

	if userDismissed && w.opts.OnDismissed != nil {
		w.opts.OnDismissed()
	}
}

// pump runs the message loop. The return value reports whether the
// window went away through user interaction or timeout, as opposed to
// a pipeline-initiated Dismiss.
func (w *window) pump(hwnd uintptr) bool {
	userDismissed := true
	var m msg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 || int(ret) == -1 {
			return userDismissed
		}
		switch m.Message {
		case wmOverlayUpdate:
			w.seq.take()
			x, y, width, height := w.placement()
			procSetWindowPos.Call(hwnd, 0, uintptr(x), uintptr(y),
				uintptr(width), uintptr(height), swpNoActivate)
			procInvalidateRect.Call(hwnd, 0, 1)
			w.armTimer(hwnd)
			continue
		case wmOverlayDismiss:
			userDismissed = false
			procDestroyWindow.Call(hwnd)
			continue
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (w *window) armTimer(hwnd uintptr) {
	if w.opts.AutoDismiss <= 0 {
		return
	}
	procSetTimer.Call(hwnd, dismissTimerID, uintptr(w.opts.AutoDismiss.Milliseconds()), 0)
}

func (w *window) wndProc(hwnd, message, wParam, lParam uintptr) uintptr {
	switch message {
	case wmPaint:
		w.paint(hwnd)
		return 0
	case wmEraseBkgnd:
		return 1
	case wmMouseMove:
		// Hovering keeps the overlay alive.
		w.armTimer(hwnd)
		return 0
	case wmMouseWheel:
		delta := int16(wParam >> 16)
		w.mu.Lock()
		w.scroll -= int32(delta) / 120 * lineScroll
		if w.scroll < 0 {
			w.scroll = 0
		}
		w.mu.Unlock()
		procInvalidateRect.Call(hwnd, 0, 1)
		return 0
	case wmLButtonDown:
		procDestroyWindow.Call(hwnd)
		return 0
	case wmTimer:
		if wParam == dismissTimerID {
			procKillTimer.Call(hwnd, dismissTimerID)
			procDestroyWindow.Call(hwnd)
		}
		return 0
	case wmDestroy:
		procPostQuitMessage.Call(0)
		return 0
	}
	ret, _, _ := procDefWindowProcW.Call(hwnd, message, wParam, lParam)
	return ret
}

func (w *window) paint(hwnd uintptr) {
	w.mu.Lock()
	text := w.text
	failed := w.failed
	scroll := w.scroll
	w.mu.Unlock()

	var ps paintStruct
	hdc, _, _ := procBeginPaint.Call(hwnd, uintptr(unsafe.Pointer(&ps)))
	defer procEndPaint.Call(hwnd, uintptr(unsafe.Pointer(&ps)))

	var client rect
	procGetClientRect.Call(hwnd, uintptr(unsafe.Pointer(&client)))

	bg := uintptr(bgColor)
	if failed {
		bg = bgFailColor
	}
	brush, _, _ := procCreateSolidBrush.Call(bg)
	procFillRect.Call(hdc, uintptr(unsafe.Pointer(&client)), brush)
	procDeleteObject.Call(brush)

	procSetBkMode.Call(hdc, transparent)
	procSetTextColor.Call(hdc, textColor)

	const pad = 12
	area := rect{
		Left:   client.Left + pad,
		Top:    client.Top + pad - scroll,
		Right:  client.Right - pad,
		Bottom: client.Bottom - pad,
	}
	utf16Text, err := syscall.UTF16FromString(text)
	if err != nil {
		return
	}
	procDrawTextW.Call(hdc, uintptr(unsafe.Pointer(&utf16Text[0])),
		uintptr(len(utf16Text)-1), uintptr(unsafe.Pointer(&area)), dtWordBreak)
}

// placement anchors the surface at the captured region's top-left and
// sizes it within sane limits.
func (w *window) placement() (x, y, width, height int32) {
	w.mu.Lock()
	origin := w.origin
	w.mu.Unlock()

	width = clamp(int32(origin.Dx()), 320, 820)
	height = clamp(int32(origin.Dy())/2, 160, 560)
	x = int32(origin.Min.X)
	y = int32(origin.Min.Y)
	return
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
