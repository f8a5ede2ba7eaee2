package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every key this package reads so tests start clean.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"BACKEND", "MODEL", "OLLAMA_HOST", "API_ENDPOINT",
		"BACKEND_COMMAND", "BACKEND_ARGS",
		"SCREENSNAP_API_KEY", "SCREENSNAP_API_KEY_FILE",
		"PROMPT", "ANALYZE_DEADLINE_SEC", "RETRY_TRANSIENT", "RETRY_DELAY_MS",
		"OVERLAY_DISMISS_SEC", "ALWAYS_ON_TOP", "COPY_TO_CLIPBOARD",
		"HOTKEY", "ENABLE_FILE_LOGGING", EnvPathVar,
	}
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
			os.Unsetenv(k)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv(EnvPathVar, filepath.Join(t.TempDir(), "missing.env"))
	defer os.Unsetenv(EnvPathVar)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendOllama {
		t.Errorf("default backend = %q, want %q", cfg.Backend, BackendOllama)
	}
	if cfg.OllamaHost != "http://localhost:11434" {
		t.Errorf("default ollama host = %q", cfg.OllamaHost)
	}
	if cfg.AnalyzeDeadline != 60*time.Second {
		t.Errorf("default analyze deadline = %v", cfg.AnalyzeDeadline)
	}
	if cfg.RetryTransient != 1 {
		t.Errorf("default transient retries = %d, want 1", cfg.RetryTransient)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Errorf("default retry delay = %v", cfg.RetryDelay)
	}
	if cfg.OverlayDismiss != 15*time.Second {
		t.Errorf("default overlay dismiss = %v", cfg.OverlayDismiss)
	}
	if cfg.Prompt != DefaultPrompt {
		t.Errorf("default prompt = %q", cfg.Prompt)
	}
	if !cfg.AlwaysOnTop {
		t.Error("always-on-top should default to true")
	}
	if cfg.CopyToClipboard {
		t.Error("clipboard copy should default to false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv(EnvPathVar, filepath.Join(t.TempDir(), "missing.env"))
	os.Setenv("BACKEND", "OpenRouter")
	os.Setenv("MODEL", "qwen2.5-vl")
	os.Setenv("OLLAMA_HOST", "http://10.0.0.2:11434/")
	os.Setenv("ANALYZE_DEADLINE_SEC", "120")
	os.Setenv("RETRY_TRANSIENT", "0")
	os.Setenv("OVERLAY_DISMISS_SEC", "30")
	os.Setenv("BACKEND_ARGS", "--fast  --quiet")
	defer func() {
		for _, k := range []string{EnvPathVar, "BACKEND", "MODEL", "OLLAMA_HOST", "ANALYZE_DEADLINE_SEC", "RETRY_TRANSIENT", "OVERLAY_DISMISS_SEC", "BACKEND_ARGS"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != BackendOpenRouter {
		t.Errorf("backend = %q, want lowercased %q", cfg.Backend, BackendOpenRouter)
	}
	if cfg.Model != "qwen2.5-vl" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.OllamaHost != "http://10.0.0.2:11434" {
		t.Errorf("ollama host should drop the trailing slash, got %q", cfg.OllamaHost)
	}
	if cfg.AnalyzeDeadline != 120*time.Second {
		t.Errorf("analyze deadline = %v", cfg.AnalyzeDeadline)
	}
	if cfg.RetryTransient != 0 {
		t.Errorf("transient retries = %d, want 0", cfg.RetryTransient)
	}
	if cfg.OverlayDismiss != 30*time.Second {
		t.Errorf("overlay dismiss = %v", cfg.OverlayDismiss)
	}
	if len(cfg.BackendArgs) != 2 || cfg.BackendArgs[0] != "--fast" || cfg.BackendArgs[1] != "--quiet" {
		t.Errorf("backend args = %v", cfg.BackendArgs)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "MODEL=from-dotenv\nHOTKEY=Ctrl+Shift+X\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	os.Setenv(EnvPathVar, envPath)
	os.Setenv("MODEL", "from-env")
	defer func() {
		os.Unsetenv(EnvPathVar)
		os.Unsetenv("MODEL")
		os.Unsetenv("HOTKEY")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("environment should win over .env, got %q", cfg.Model)
	}
	if cfg.Hotkey != "Ctrl+Shift+X" {
		t.Errorf(".env hotkey not applied, got %q", cfg.Hotkey)
	}
}

func TestAPIKeyFile(t *testing.T) {
	clearEnv(t)
	os.Setenv(EnvPathVar, filepath.Join(t.TempDir(), "missing.env"))
	keyPath := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(keyPath, []byte("sk-test-123\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	os.Setenv("SCREENSNAP_API_KEY_FILE", keyPath)
	defer func() {
		os.Unsetenv(EnvPathVar)
		os.Unsetenv("SCREENSNAP_API_KEY_FILE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-test-123" {
		t.Errorf("api key = %q, want trimmed file contents", cfg.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"process without command", Config{Backend: BackendProcess, AnalyzeDeadline: time.Second}, true},
		{"process with command", Config{Backend: BackendProcess, BackendPath: "/usr/bin/true", AnalyzeDeadline: time.Second}, false},
		{"ollama defaults", Config{Backend: BackendOllama, OllamaHost: "http://localhost:11434", AnalyzeDeadline: time.Second}, false},
		{"openrouter without key", Config{Backend: BackendOpenRouter, AnalyzeDeadline: time.Second}, true},
		{"openrouter with key", Config{Backend: BackendOpenRouter, APIKey: "sk", AnalyzeDeadline: time.Second}, false},
		{"unknown backend", Config{Backend: "carrier-pigeon", AnalyzeDeadline: time.Second}, true},
		{"zero deadline", Config{Backend: BackendOllama, OllamaHost: "h", AnalyzeDeadline: 0}, true},
		{"negative retries", Config{Backend: BackendOllama, OllamaHost: "h", AnalyzeDeadline: time.Second, RetryTransient: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
