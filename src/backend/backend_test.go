package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"screensnap/src/config"
)

func TestKindOf(t *testing.T) {
	err := newError(KindAuth, "nope", nil)
	wrapped := fmt.Errorf("analyze: %w", err)

	k, ok := KindOf(wrapped)
	if !ok || k != KindAuth {
		t.Errorf("KindOf(wrapped) = (%v, %v), want (KindAuth, true)", k, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should not match untyped errors")
	}
	if _, ok := KindOf(context.Canceled); ok {
		t.Error("KindOf should not match context.Canceled")
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindNetwork, true},
		{KindAuth, false},
		{KindRateLimited, false},
		{KindUnavailable, false},
		{KindMalformedOutput, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := Transient(newError(tt.kind, "x", nil)); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
	if Transient(errors.New("plain")) {
		t.Error("untyped errors are never transient")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := newError(KindNetwork, "connect", inner)
	if !errors.Is(err, inner) {
		t.Error("Error should unwrap to the underlying error")
	}
}

func TestNewDispatch(t *testing.T) {
	base := config.Config{
		Model:           "llava:latest",
		OllamaHost:      "http://localhost:11434",
		Endpoint:        "https://example.test/v1/chat/completions",
		BackendPath:     "/usr/local/bin/analyzer",
		APIKey:          "sk-test",
		AnalyzeDeadline: time.Minute,
	}

	tests := []struct {
		backend  string
		wantName string
	}{
		{config.BackendProcess, "process"},
		{config.BackendOllama, "ollama"},
		{config.BackendOpenRouter, "openrouter"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := base
			cfg.Backend = tt.backend
			b, err := New(&cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if b.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.wantName)
			}
		})
	}

	cfg := base
	cfg.Backend = "telepathy"
	if _, err := New(&cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
