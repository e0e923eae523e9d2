package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Defaults applied to the audit stream when the config leaves a field at zero.
const (
	defaultAuditSizeMB  = 50
	defaultAuditBackups = 5
	defaultAuditAgeDays = 14
)

// rotatingWriter appends to a single file and, once limit bytes would be
// exceeded, shifts it to path.1 (older copies move up to path.N).
// Backups older than maxAge are pruned after every shift.
type rotatingWriter struct {
	path       string
	limit      int64
	maxBackups int
	maxAge     time.Duration

	mu      sync.Mutex
	current *os.File
	written int64
}

func newRotatingWriter(path string, maxSizeMB, maxBackups, maxAgeDays int) (*rotatingWriter, error) {
	if path == "" {
		return nil, errors.New("audit log path cannot be empty when enabled")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &rotatingWriter{
		path:       path,
		limit:      int64(orDefault(maxSizeMB, defaultAuditSizeMB)) << 20,
		maxBackups: orDefault(maxBackups, defaultAuditBackups),
		maxAge:     time.Duration(orDefault(maxAgeDays, defaultAuditAgeDays)) * 24 * time.Hour,
	}, nil
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil && w.written+int64(len(p)) > w.limit {
		if err := w.shift(); err != nil {
			// Keep logging into a fresh file even if a rename failed.
			fmt.Fprintf(os.Stderr, "audit log rotation: %v\n", err)
		}
	}
	if w.current == nil {
		if err := w.reopen(); err != nil {
			return 0, err
		}
	}
	n, err := w.current.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.release()
}

func (w *rotatingWriter) release() error {
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current, w.written = nil, 0
	return err
}

func (w *rotatingWriter) reopen() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}
	w.current, w.written = f, info.Size()
	return nil
}

// shift closes the active file and renames the chain. Missing backups are
// not an error.
func (w *rotatingWriter) shift() error {
	errs := []error{w.release()}
	for n := w.maxBackups; n > 0; n-- {
		from := w.path
		if n > 1 {
			from = w.backupName(n - 1)
		}
		if err := os.Rename(from, w.backupName(n)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	w.prune(time.Now())
	return errors.Join(errs...)
}

func (w *rotatingWriter) prune(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	for n := 1; n <= w.maxBackups; n++ {
		name := w.backupName(n)
		if info, err := os.Stat(name); err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(name)
		}
	}
}

func (w *rotatingWriter) backupName(n int) string {
	return w.path + "." + fmt.Sprint(n)
}
