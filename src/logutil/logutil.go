// Package logutil wires the standard logger to a size-rotated file,
// or to io.Discard when file logging is off.
package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	logFileName  = "screensnap.log"
	maxSizeBytes = 10 * 1024 * 1024
	maxArchives  = 3
)

// Setup configures the global logger. With enable=false all log output
// is dropped, which keeps the hot path free of I/O.
func Setup(enable bool) error {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enable {
		log.SetOutput(io.Discard)
		return nil
	}
	w, err := newRotatingWriter(logPath())
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(w)
	return nil
}

// logPath places the log next to the executable, falling back to the
// working directory.
func logPath() string {
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), logFileName)
	}
	return logFileName
}

// RedactKey shortens a secret for logging. Short keys are fully masked.
func RedactKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

type rotatingWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64
}

func newRotatingWriter(path string) (*rotatingWriter, error) {
	w := &rotatingWriter{path: path}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size+int64(len(p)) > maxSizeBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate shifts screensnap.log -> .1 -> .2 -> .3, dropping the oldest.
func (w *rotatingWriter) rotate() error {
	w.file.Close()
	os.Remove(archiveName(w.path, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		os.Rename(archiveName(w.path, i), archiveName(w.path, i+1))
	}
	if err := os.Rename(w.path, archiveName(w.path, 1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return w.open()
}

func archiveName(path string, i int) string {
	return fmt.Sprintf("%s.%d", path, i)
}
