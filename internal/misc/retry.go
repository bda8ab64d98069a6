package misc

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
	"time"
)

// DefaultBackoff is the delay before each retry; its length bounds the number of retries.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Retry runs op until it succeeds, fails with an error isRetryable rejects, or
// the delays run out. The last error is returned.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() error) error {
	_, err := RetryValue(ctx, delays, isRetryable, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// RetryValue is Retry for operations that produce a result, such as queries.
// Cancelling ctx ends the wait between attempts and returns ctx.Err().
func RetryValue[T any](ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op()
		switch {
		case err == nil:
			return v, nil
		case ctx.Err() != nil:
			return zero, ctx.Err()
		case attempt == len(delays) || !isRetryable(err):
			return zero, err
		}
		if err := sleep(ctx, delays[attempt]); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsNetworkError reports transport failures worth retrying: dial and socket
// errors, client timeouts, and refused or reset connections.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
