package ports

import "context"

// HostSampler writes one host sample into live metrics.
type HostSampler interface {
	Sample(ctx context.Context) error
}

// FramePublisher ships one encoded frame to the monitor.
type FramePublisher interface {
	SendFrame(ctx context.Context, frame []byte) error
}
