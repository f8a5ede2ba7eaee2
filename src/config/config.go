package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selector values for the BACKEND key.
const (
	BackendProcess    = "process"
	BackendOllama     = "ollama"
	BackendOpenRouter = "openrouter"
)

// EnvPathVar points at an alternate .env file when the default
// (next to the executable) is not wanted.
const EnvPathVar = "SCREENSNAP_ENV"

// Config is an immutable snapshot of the application settings.
// Load builds a fresh one; nothing mutates it afterwards.
type Config struct {
	Backend string // process | ollama | openrouter

	Model       string
	OllamaHost  string
	Endpoint    string // remote chat-completions URL
	BackendPath string // executable for the process backend
	BackendArgs []string
	APIKey      string

	// Prompt sent with every capture.
	Prompt string

	AnalyzeDeadline time.Duration
	RetryTransient  int // retries after a timeout or network error
	RetryDelay      time.Duration

	OverlayDismiss time.Duration
	AlwaysOnTop    bool

	CopyToClipboard   bool
	Hotkey            string
	EnableFileLogging bool
}

// DefaultPrompt matches what the interactive build ships with.
const DefaultPrompt = "Describe what you see in this image in detail, focusing on any text, UI elements, and visual content."

// Load reads the .env file (if present) and environment variables into a
// Config. Real environment variables win over .env values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Backend:           strings.ToLower(getEnvWithDefault("BACKEND", BackendOllama)),
		Model:             getEnvWithDefault("MODEL", "llava:latest"),
		OllamaHost:        strings.TrimRight(getEnvWithDefault("OLLAMA_HOST", "http://localhost:11434"), "/"),
		Endpoint:          getEnvWithDefault("API_ENDPOINT", "https://openrouter.ai/api/v1/chat/completions"),
		BackendPath:       strings.TrimSpace(os.Getenv("BACKEND_COMMAND")),
		Prompt:            getEnvWithDefault("PROMPT", DefaultPrompt),
		AnalyzeDeadline:   time.Duration(getEnvInt("ANALYZE_DEADLINE_SEC", 60)) * time.Second,
		RetryTransient:    getEnvInt("RETRY_TRANSIENT", 1),
		RetryDelay:        time.Duration(getEnvInt("RETRY_DELAY_MS", 500)) * time.Millisecond,
		OverlayDismiss:    time.Duration(getEnvInt("OVERLAY_DISMISS_SEC", 15)) * time.Second,
		AlwaysOnTop:       getEnvBool("ALWAYS_ON_TOP", true),
		CopyToClipboard:   getEnvBool("COPY_TO_CLIPBOARD", false),
		Hotkey:            getEnvWithDefault("HOTKEY", "Ctrl+Alt+S"),
		EnableFileLogging: getEnvBool("ENABLE_FILE_LOGGING", false),
	}

	if args := strings.TrimSpace(os.Getenv("BACKEND_ARGS")); args != "" {
		cfg.BackendArgs = strings.Fields(args)
	}

	key, err := loadAPIKey()
	if err != nil {
		return nil, err
	}
	cfg.APIKey = key

	return cfg, nil
}

// Validate checks that the selected backend has what it needs to run.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendProcess:
		if c.BackendPath == "" {
			return fmt.Errorf("BACKEND_COMMAND is required for the process backend")
		}
	case BackendOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST is required for the ollama backend")
		}
	case BackendOpenRouter:
		if c.APIKey == "" {
			return fmt.Errorf("SCREENSNAP_API_KEY is required for the openrouter backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q (want process, ollama or openrouter)", c.Backend)
	}
	if c.AnalyzeDeadline <= 0 {
		return fmt.Errorf("ANALYZE_DEADLINE_SEC must be positive")
	}
	if c.RetryTransient < 0 {
		return fmt.Errorf("RETRY_TRANSIENT must not be negative")
	}
	return nil
}

// loadDotEnv applies .env values without clobbering real environment variables.
func loadDotEnv() {
	path := resolveEnvPath()
	if path == "" {
		return
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for k, v := range values {
		if _, exists := os.LookupEnv(k); !exists {
			os.Setenv(k, v)
		}
	}
}

// resolveEnvPath prefers SCREENSNAP_ENV, then a .env beside the executable,
// then a .env in the working directory.
func resolveEnvPath() string {
	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
		return ""
	}
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), ".env")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

// loadAPIKey reads the key from SCREENSNAP_API_KEY, falling back to the
// file named by SCREENSNAP_API_KEY_FILE (docker-secret style).
func loadAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv("SCREENSNAP_API_KEY")); key != "" {
		return key, nil
	}
	path := os.Getenv("SCREENSNAP_API_KEY_FILE")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read API key file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func getEnvWithDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
