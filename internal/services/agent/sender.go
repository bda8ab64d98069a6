package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/ports"
)

// FrameSender ships encoded frames through a fixed number of workers, bounding
// the number of concurrent requests to the monitor.
type FrameSender struct {
	pub     ports.FramePublisher
	logger  *zap.Logger
	workers int
	jobs    chan []byte
	wg      sync.WaitGroup

	// OnSent, when set, receives the duration of every successful send.
	OnSent func(time.Duration)
}

func NewFrameSender(pub ports.FramePublisher, workers int, logger *zap.Logger) *FrameSender {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameSender{
		pub:     pub,
		logger:  logger,
		workers: workers,
		jobs:    make(chan []byte, workers*2),
	}
}

func (fs *FrameSender) Start(ctx context.Context) {
	for i := range fs.workers {
		fs.wg.Add(1)
		go func(id int) {
			defer fs.wg.Done()
			for frame := range fs.jobs {
				start := time.Now()
				if err := fs.pub.SendFrame(ctx, frame); err != nil {
					fs.logger.Warn("frame send failed",
						zap.Int("worker", id),
						zap.Int("bytes", len(frame)),
						zap.Error(err),
					)
					continue
				}
				if fs.OnSent != nil {
					fs.OnSent(time.Since(start))
				}
			}
		}(i + 1)
	}
}

// Stop closes the queue and waits for in-flight frames. Submit must not be called afterwards.
func (fs *FrameSender) Stop() {
	close(fs.jobs)
	fs.wg.Wait()
}

// Submit queues a frame, blocking while the queue is full. It reports false when
// ctx ends first and the frame was dropped.
func (fs *FrameSender) Submit(ctx context.Context, frame []byte) bool {
	select {
	case fs.jobs <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
