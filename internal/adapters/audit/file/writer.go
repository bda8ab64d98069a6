// Package file appends frame audit events to a newline-delimited JSON log.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vshulcz/netstats/internal/services/audit"
)

// Writer keeps the audit log open between events and appends one JSON object per line.
type Writer struct {
	path string
	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
}

var _ audit.Observer = (*Writer)(nil)

// New creates a Writer for path. The file is opened on the first event.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Notify appends evt to the log.
func (w *Writer) Notify(_ context.Context, evt audit.Event) error {
	if w == nil || w.path == "" {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.open(); err != nil {
		return err
	}
	if err := w.enc.Encode(evt); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

func (w *Writer) open() error {
	if w.f != nil {
		return nil
	}
	if dir := filepath.Dir(w.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir audit dir: %w", err)
		}
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	w.f = f
	w.enc = json.NewEncoder(f)
	return nil
}

// Close releases the log file. A later Notify reopens it.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f, w.enc = nil, nil
	if err != nil {
		return fmt.Errorf("close audit file: %w", err)
	}
	return nil
}
