package ports

import (
	"context"

	"github.com/vshulcz/netstats/internal/domain"
)

// CaptureStore persists received frames.
type CaptureStore interface {
	Save(ctx context.Context, c domain.Capture) error
	// Recent returns up to limit captures, oldest first.
	Recent(ctx context.Context, limit int) ([]domain.Capture, error)
	Ping(ctx context.Context) error
}

// CaptureReplayer streams stored captures back in the order they were saved.
type CaptureReplayer interface {
	Replay(ctx context.Context, fn func(domain.Capture) error) error
}
