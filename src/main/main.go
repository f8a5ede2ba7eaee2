// Command screensnap-resident runs the capture pipeline in the
// background: it owns the tray icon, the global hotkey and the overlay,
// and accepts delegated triggers from later invocations.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"screensnap/src/backend"
	"screensnap/src/capture"
	"screensnap/src/clipboard"
	"screensnap/src/config"
	"screensnap/src/hotkey"
	"screensnap/src/logutil"
	"screensnap/src/overlay"
	"screensnap/src/pipeline"
	"screensnap/src/singleinstance"
	"screensnap/src/target"
	"screensnap/src/tray"
)

func main() {
	// The tray loop must own the main OS thread.
	runtime.LockOSThread()
	enableDPIAwareness()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logutil.Setup(cfg.EnableFileLogging); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIKey != "" {
		log.Printf("using API key %s", logutil.RedactKey(cfg.APIKey))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Claim the resident port. If another instance holds it, hand the
	// capture trigger over and exit quietly.
	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		delegated, derr := singleinstance.NewClient().TryTrigger(ctx)
		if delegated && derr == nil {
			fmt.Println("Capture delegated to the running instance.")
			return
		}
		fmt.Fprintf(os.Stderr, "another instance appears to be running: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()
	log.Printf("resident listening on port %d", srv.Port())

	b, err := backend.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := b.Ping(pingCtx); err != nil {
		log.Printf("backend %s not reachable yet: %v", b.Name(), err)
	}
	pingCancel()

	var clip func(string)
	if cfg.CopyToClipboard {
		if err := clipboard.Init(); err != nil {
			log.Printf("clipboard disabled: %v", err)
		} else {
			clip = func(text string) {
				if err := clipboard.Write(text); err != nil {
					log.Printf("clipboard write: %v", err)
				}
			}
		}
	}

	var orch *pipeline.Orchestrator
	presenter := overlay.New(overlay.Options{
		AutoDismiss: cfg.OverlayDismiss,
		AlwaysOnTop: cfg.AlwaysOnTop,
		OnDismissed: func() { orch.NotifyDismissed() },
	})

	orch = pipeline.New(pipeline.Options{
		Resolver:        pipeline.ResolverFunc(target.Resolve),
		Capturer:        capture.New(),
		Backend:         b,
		Presenter:       presenter,
		Clipboard:       clip,
		Prompt:          cfg.Prompt,
		AnalyzeDeadline: cfg.AnalyzeDeadline,
		RetryTransient:  cfg.RetryTransient,
		RetryDelay:      cfg.RetryDelay,
		OnState: func(s pipeline.State) {
			tray.UpdateTooltip("screensnap: " + s.String())
		},
	})

	// Delegated triggers from later invocations.
	go func() {
		for {
			conn, err := srv.Next(ctx)
			if err != nil {
				return
			}
			orch.Trigger("")
			conn.RespondSuccess("triggered")
		}
	}()

	go func() {
		if err := hotkey.Listen(cfg.Hotkey, func() { orch.Trigger("") }); err != nil {
			log.Printf("hotkey unavailable: %v", err)
		}
	}()

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		orch.Run(ctx)
	}()

	tr := tray.New(tray.Config{
		Tooltip:   "screensnap: idle",
		OnCapture: func() { orch.Trigger("") },
		OnQuit:    cancel,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		tr.Quit()
	}()

	tr.Run() // blocks on the main thread until quit
	cancel()
	<-pipelineDone
}
