// Package backend sends captured frames to an analysis engine and
// returns its textual result. Three engines are supported: an external
// process, a local Ollama server, and an OpenRouter-style remote API.
//
// This layer never retries and never touches UI state. It classifies
// every failure into a Kind so the pipeline can decide what to do.
package backend

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"screensnap/src/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request carries one frame to a backend. The fields are read-only after
// construction; backends must not modify them.
type Request struct {
	ImagePNG []byte
	Prompt   string
}

// Result is the analysis text for exactly one Request.
type Result struct {
	Text string
}

// Backend analyzes a single frame. Analyze blocks until the result is
// ready, the context is done, or the engine fails; it returns exactly
// one Result or one error, never both and never partial text.
type Backend interface {
	Name() string
	Analyze(ctx context.Context, req Request) (Result, error)
	// Ping checks reachability without performing an analysis.
	Ping(ctx context.Context) error
}

// Kind classifies backend failures.
type Kind int

const (
	KindUnavailable Kind = iota
	KindTimeout
	KindMalformedOutput
	KindAuth
	KindNetwork
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindMalformedOutput:
		return "malformed output"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate limited"
	default:
		return "unknown"
	}
}

// Error is the typed failure every backend returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// Transient reports whether a failure is worth one automatic retry.
// Only timeouts and connection-level network errors qualify.
func Transient(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindTimeout || k == KindNetwork)
}

// New builds the backend selected by the configuration.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendProcess:
		return NewProcess(cfg.BackendPath, cfg.BackendArgs), nil
	case config.BackendOllama:
		return NewOllama(cfg.OllamaHost, cfg.Model), nil
	case config.BackendOpenRouter:
		return NewRemote(cfg.Endpoint, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
