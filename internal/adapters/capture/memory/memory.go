// Package memory implements a bounded in-memory capture store.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/vshulcz/netstats/internal/domain"
	"github.com/vshulcz/netstats/internal/ports"
)

// Store keeps the most recent captures in memory with coarse-grained RW locking.
// Once full, each Save drops the oldest capture.
type Store struct {
	captures []domain.Capture
	limit    int
	mu       sync.RWMutex
}

var (
	_ ports.CaptureStore    = (*Store)(nil)
	_ ports.CaptureReplayer = (*Store)(nil)
)

// New returns an empty store holding at most limit captures.
func New(limit int) *Store {
	return &Store{limit: max(limit, 1)}
}

// Save stores a copy of c.
func (s *Store) Save(_ context.Context, c domain.Capture) error {
	c.Frame = slices.Clone(c.Frame)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.captures) == s.limit {
		s.captures = slices.Delete(s.captures, 0, 1)
	}
	s.captures = append(s.captures, c)
	return nil
}

// Recent returns up to limit of the newest captures, oldest first.
func (s *Store) Recent(_ context.Context, limit int) ([]domain.Capture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.captures)
	if limit > 0 && limit < n {
		n = limit
	}
	return slices.Clone(s.captures[len(s.captures)-n:]), nil
}

// Replay calls fn for every capture, oldest first.
func (s *Store) Replay(ctx context.Context, fn func(domain.Capture) error) error {
	all, _ := s.Recent(ctx, 0)
	for _, c := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored captures.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.captures)
}

// Ping reports that the in-memory store is not backed by a real database.
func (*Store) Ping(context.Context) error {
	return domain.ErrStoreNotConfigured
}
