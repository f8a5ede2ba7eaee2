// Package tray puts a status icon in the system tray with capture and
// quit actions. The tooltip mirrors the pipeline state.
package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
)

type Config struct {
	Tooltip   string
	OnCapture func()
	OnQuit    func()
}

type Tray struct {
	cfg Config
}

func New(cfg Config) *Tray {
	return &Tray{cfg: cfg}
}

// Run blocks driving the tray loop until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit tears the tray down and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	// systray wants .ico bytes on Windows; skip the generated PNG there.
	if runtime.GOOS != "windows" {
		systray.SetIcon(iconPNG())
	}
	systray.SetTitle("screensnap")
	systray.SetTooltip(t.cfg.Tooltip)

	capture := systray.AddMenuItem("Capture now", "Capture and analyze the screen")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Exit screensnap")

	go func() {
		for {
			select {
			case <-capture.ClickedCh:
				if t.cfg.OnCapture != nil {
					t.cfg.OnCapture()
				}
			case <-quit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	if t.cfg.OnQuit != nil {
		t.cfg.OnQuit()
	}
}

// UpdateTooltip reflects the current pipeline state in the tray.
func UpdateTooltip(text string) {
	systray.SetTooltip(text)
}

var (
	iconOnce  sync.Once
	iconBytes []byte
)

// iconPNG draws a minimal 16x16 lens glyph so we do not have to embed
// binary assets.
func iconPNG() []byte {
	iconOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		frame := color.RGBA{0x2e, 0x2e, 0x2e, 0xff}
		lens := color.RGBA{0x4f, 0xa3, 0xe3, 0xff}
		for y := 2; y < 14; y++ {
			for x := 1; x < 15; x++ {
				img.SetRGBA(x, y, frame)
			}
		}
		for y := 5; y < 11; y++ {
			for x := 5; x < 11; x++ {
				dx, dy := x-8, y-8
				if dx*dx+dy*dy <= 9 {
					img.SetRGBA(x, y, lens)
				}
			}
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err == nil {
			iconBytes = buf.Bytes()
		}
	})
	return iconBytes
}
