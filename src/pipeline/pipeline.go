// Package pipeline coordinates capture, analysis and display. A single
// goroutine owns all state; capture and analysis run on a worker pool
// and report back over a channel, tagged with a generation number so
// superseded work can never touch the screen.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"screensnap/src/backend"
	"screensnap/src/capture"
	"screensnap/src/target"
	"screensnap/src/worker"
)

// State is the pipeline's user-visible mode. There is one State per
// process and only the orchestrator goroutine mutates it.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateAwaiting
	StateDisplaying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateAwaiting:
		return "awaiting"
	case StateDisplaying:
		return "displaying"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolver maps a selection string to a capture target.
type Resolver interface {
	Resolve(selection string) (target.Target, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(string) (target.Target, error)

func (f ResolverFunc) Resolve(s string) (target.Target, error) { return f(s) }

// Capturer grabs a frame for a resolved target.
type Capturer interface {
	Capture(t target.Target) (*capture.Result, error)
}

// CapturerFunc adapts a function to the Capturer interface.
type CapturerFunc func(target.Target) (*capture.Result, error)

func (f CapturerFunc) Capture(t target.Target) (*capture.Result, error) { return f(t) }

// Presenter renders results. Show replaces whatever is currently shown;
// Dismiss hides the surface and must be idempotent. Implementations own
// the auto-dismiss countdown and report dismissal back through
// Orchestrator.NotifyDismissed.
type Presenter interface {
	Show(text string, origin image.Rectangle, failed bool)
	Dismiss()
}

// Options wires the orchestrator's collaborators. All fields except the
// optional ones (Clipboard, OnState) are required.
type Options struct {
	Resolver  Resolver
	Capturer  Capturer
	Backend   backend.Backend
	Presenter Presenter

	// Clipboard, when set, receives every successful analysis text.
	Clipboard func(text string)

	Prompt    string
	Selection string // default capture selection for triggers

	AnalyzeDeadline time.Duration
	RetryTransient  int // extra attempts after a timeout or network error
	RetryDelay      time.Duration

	Workers int

	// OnState is invoked on the orchestrator goroutine after every
	// transition. Used by the tray tooltip and by tests.
	OnState func(State)
}

// event is what a background job reports home. captured marks the
// intermediate capture-finished notification; otherwise the event is
// the job's final outcome.
type event struct {
	gen      uint64
	captured bool
	text     string
	origin   image.Rectangle
	err      error
}

type Orchestrator struct {
	opts Options
	pool *worker.Pool

	triggers chan string
	dismiss  chan struct{}
	events   chan event

	// Owned by the Run goroutine.
	gen    uint64
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
}

func New(opts Options) *Orchestrator {
	if opts.AnalyzeDeadline <= 0 {
		opts.AnalyzeDeadline = 60 * time.Second
	}
	// A negative retry count must still leave one attempt, or the job
	// would report success without ever calling the backend.
	if opts.RetryTransient < 0 {
		opts.RetryTransient = 0
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	return &Orchestrator{
		opts:     opts,
		pool:     worker.New(opts.Workers),
		triggers: make(chan string, 1),
		dismiss:  make(chan struct{}, 1),
		events:   make(chan event, 16),
		state:    StateIdle,
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Trigger requests a capture of the given selection ("" means the
// configured default). Never blocks; when triggers pile up faster than
// the loop drains them, only the latest survives.
func (o *Orchestrator) Trigger(selection string) {
	for {
		select {
		case o.triggers <- selection:
			return
		default:
		}
		select {
		case <-o.triggers:
		default:
		}
	}
}

// NotifyDismissed tells the orchestrator the overlay went away (user
// click or presenter timeout). Safe to call from any goroutine and at
// any time; dismissing an already-idle pipeline is a no-op.
func (o *Orchestrator) NotifyDismissed() {
	select {
	case o.dismiss <- struct{}{}:
	default:
	}
}

// Run processes events until ctx is done. It is the only goroutine that
// mutates pipeline state or drives the presenter.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.pool.Close()
	for {
		select {
		case <-ctx.Done():
			o.cancelInflight()
			o.opts.Presenter.Dismiss()
			return ctx.Err()
		case sel := <-o.triggers:
			o.startJob(ctx, sel)
		case <-o.dismiss:
			o.applyDismiss()
		case ev := <-o.events:
			o.apply(ev)
		}
	}
}

// startJob supersedes any in-flight work and launches a fresh
// capture+analyze job under a new generation.
func (o *Orchestrator) startJob(parent context.Context, sel string) {
	o.cancelInflight()
	if s := o.State(); s == StateDisplaying || s == StateFailed {
		o.opts.Presenter.Dismiss()
	}

	o.gen++
	gen := o.gen
	if sel == "" {
		sel = o.opts.Selection
	}

	jobCtx, cancel := context.WithCancel(parent)
	o.cancel = cancel
	o.setState(StateCapturing)

	ok := o.pool.Submit(jobCtx, func(ctx context.Context) {
		text, origin, err := o.captureAndAnalyze(ctx, gen, sel)
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		o.post(ctx, event{gen: gen, text: text, origin: origin, err: err})
	})
	if !ok {
		cancel()
		o.cancel = nil
		o.setState(StateFailed)
		o.opts.Presenter.Show("Busy, please retry.", image.Rectangle{}, true)
	}
}

func (o *Orchestrator) cancelInflight() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// post delivers an event to the loop. A cancelled job may drop its
// event; its generation is stale anyway.
func (o *Orchestrator) post(ctx context.Context, ev event) {
	select {
	case o.events <- ev:
	case <-ctx.Done():
	}
}

// apply folds a job event into the state machine. Stale generations are
// dropped here, at the single point where state changes.
func (o *Orchestrator) apply(ev event) {
	if ev.gen != o.gen {
		log.Printf("dropping stale job event (generation %d, current %d)", ev.gen, o.gen)
		return
	}
	if ev.captured {
		o.setState(StateAwaiting)
		return
	}

	o.cancel = nil
	if ev.err != nil {
		if errors.Is(ev.err, context.Canceled) {
			o.setState(StateIdle)
			return
		}
		log.Printf("pipeline failed: %v", ev.err)
		o.setState(StateFailed)
		o.opts.Presenter.Show(failureMessage(ev.err), ev.origin, true)
		return
	}

	o.setState(StateDisplaying)
	o.opts.Presenter.Show(ev.text, ev.origin, false)
	if o.opts.Clipboard != nil {
		o.opts.Clipboard(ev.text)
	}
}

func (o *Orchestrator) applyDismiss() {
	s := o.State()
	if s != StateDisplaying && s != StateFailed {
		return
	}
	o.opts.Presenter.Dismiss()
	o.setState(StateIdle)
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.opts.OnState != nil {
		o.opts.OnState(s)
	}
}

// captureAndAnalyze is the body of one background job. It runs off the
// orchestrator goroutine and communicates only through posted events.
func (o *Orchestrator) captureAndAnalyze(ctx context.Context, gen uint64, sel string) (string, image.Rectangle, error) {
	res, err := o.captureTarget(ctx, sel)
	if err != nil {
		return "", image.Rectangle{}, err
	}
	o.post(ctx, event{gen: gen, captured: true, origin: res.Origin})

	png, err := res.PNG()
	if err != nil {
		return "", res.Origin, err
	}
	req := backend.Request{ImagePNG: png, Prompt: o.opts.Prompt}

	var lastErr error
	for attempt := 0; attempt <= o.opts.RetryTransient; attempt++ {
		if attempt > 0 {
			log.Printf("retrying analysis after transient failure: %v", lastErr)
			select {
			case <-time.After(o.opts.RetryDelay):
			case <-ctx.Done():
				return "", res.Origin, ctx.Err()
			}
		}
		actx, cancel := context.WithTimeout(ctx, o.opts.AnalyzeDeadline)
		result, aerr := o.opts.Backend.Analyze(actx, req)
		cancel()
		if aerr == nil {
			return result.Text, res.Origin, nil
		}
		if ctx.Err() != nil {
			return "", res.Origin, ctx.Err()
		}
		lastErr = aerr
		if !backend.Transient(aerr) {
			break
		}
	}
	return "", res.Origin, lastErr
}

// captureTarget resolves and captures, applying the capture retry
// policy: a vanished target falls back to the whole screen once, and a
// geometry race re-resolves and recaptures once.
func (o *Orchestrator) captureTarget(ctx context.Context, sel string) (*capture.Result, error) {
	t, err := o.opts.Resolver.Resolve(sel)
	if err != nil {
		if !errors.Is(err, target.ErrTargetUnavailable) || sel == "" {
			return nil, err
		}
		log.Printf("target %q unavailable, falling back to whole screen", sel)
		if t, err = o.opts.Resolver.Resolve(""); err != nil {
			return nil, err
		}
	}

	res, err := o.opts.Capturer.Capture(t)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	switch {
	case errors.Is(err, target.ErrTargetUnavailable):
		log.Printf("target vanished mid-capture, falling back to whole screen")
		full, rerr := o.opts.Resolver.Resolve("")
		if rerr != nil {
			return nil, err
		}
		return o.opts.Capturer.Capture(full)
	case errors.Is(err, capture.ErrGeometryChanged):
		log.Printf("geometry changed during capture, re-resolving once")
		fresh, rerr := o.opts.Resolver.Resolve(sel)
		if rerr != nil {
			return nil, err
		}
		return o.opts.Capturer.Capture(fresh)
	}
	return nil, err
}

// failureMessage maps internal errors to the short text shown on the
// overlay. Raw protocol errors never surface to the user.
func failureMessage(err error) string {
	if kind, ok := backend.KindOf(err); ok {
		switch kind {
		case backend.KindAuth:
			return "Authentication failed. Check your API key."
		case backend.KindTimeout:
			return "Analysis timed out."
		case backend.KindNetwork:
			return "Network error. Check your connection."
		case backend.KindRateLimited:
			return "Rate limited by the provider. Try again shortly."
		case backend.KindUnavailable:
			return "Analysis backend is unavailable."
		case backend.KindMalformedOutput:
			return "Backend returned unreadable output."
		}
	}
	switch {
	case errors.Is(err, target.ErrTargetUnavailable):
		return "Capture target is gone."
	case errors.Is(err, capture.ErrGeometryChanged):
		return "Window kept moving during capture. Try again."
	}
	var ce *capture.CaptureError
	if errors.As(err, &ce) {
		return "Screen capture failed."
	}
	return "Capture failed. See the log for details."
}
