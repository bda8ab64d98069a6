// Package file implements an append-only capture log on disk.
//
// Each record is a length-prefixed frame (see codec.WriteFrame) whose body is
//
//	i64 received_at (unix nanoseconds)
//	string session_id
//	u64 connection_id
//	i32 metric_count
//	bytes frame (rest of the record)
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vshulcz/netstats/internal/domain"
	"github.com/vshulcz/netstats/internal/netstats/codec"
	"github.com/vshulcz/netstats/internal/ports"
)

// Store appends captures to a single file.
type Store struct {
	path string
	mu   sync.Mutex
}

var (
	_ ports.CaptureStore    = (*Store)(nil)
	_ ports.CaptureReplayer = (*Store)(nil)
)

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the capture file location.
func (s *Store) Path() string { return s.path }

// Save appends c to the capture file, creating it if needed.
func (s *Store) Save(_ context.Context, c domain.Capture) (retErr error) {
	rec := encodeRecord(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close: %w", cerr)
		}
	}()
	if err := codec.WriteFrame(f, rec); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest captures, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Capture, error) {
	var out []domain.Capture
	err := s.Replay(ctx, func(c domain.Capture) error {
		out = append(out, c)
		if limit > 0 && len(out) > limit {
			out = out[1:]
		}
		return nil
	})
	return out, err
}

// Replay reads the capture file from the start. A missing file replays nothing.
// Records appended after Replay starts are not visited.
func (s *Store) Replay(ctx context.Context, fn func(domain.Capture) error) (retErr error) {
	f, size, err := s.openSnapshot()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close: %w", cerr)
		}
	}()

	r := bufio.NewReader(io.LimitReader(f, size))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := codec.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		c, err := decodeRecord(rec)
		if err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := fn(c); err != nil {
			return err
		}
	}
}

// openSnapshot opens the file and returns its size at a record boundary.
func (s *Store) openSnapshot() (*os.File, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}
	return f, st.Size(), nil
}

// Ping reports that the capture file is not a database.
func (*Store) Ping(context.Context) error {
	return domain.ErrStoreNotConfigured
}

func encodeRecord(c domain.Capture) []byte {
	w := codec.NewWriter(32 + len(c.SessionID) + len(c.Frame))
	w.WriteI64(c.ReceivedAt.UnixNano())
	w.WriteString(c.SessionID)
	w.WriteU64(c.ConnectionID)
	w.WriteI32(int32(c.MetricCount))
	w.WriteBytes(c.Frame)
	return w.Bytes()
}

func decodeRecord(rec []byte) (domain.Capture, error) {
	r := codec.NewReader(rec)
	ns, err := r.ReadI64()
	if err != nil {
		return domain.Capture{}, err
	}
	session, err := r.ReadString()
	if err != nil {
		return domain.Capture{}, err
	}
	conn, err := r.ReadU64()
	if err != nil {
		return domain.Capture{}, err
	}
	count, err := r.ReadI32()
	if err != nil {
		return domain.Capture{}, err
	}
	if count < 0 {
		return domain.Capture{}, fmt.Errorf("%w: negative metric count %d", codec.ErrMalformed, count)
	}
	frame, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return domain.Capture{}, err
	}
	return domain.Capture{
		ReceivedAt:   time.Unix(0, ns).UTC(),
		SessionID:    session,
		Frame:        append([]byte(nil), frame...),
		ConnectionID: conn,
		MetricCount:  int(count),
		Size:         len(frame),
	}, nil
}
