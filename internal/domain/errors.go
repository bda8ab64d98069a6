package domain

import "errors"

var (
	// ErrNotFound is returned when the requested capture does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreNotConfigured is returned by Ping on stores without a database behind them.
	ErrStoreNotConfigured = errors.New("db not configured")
	// ErrInvalidFrame indicates a frame that could not be decoded; the frame is dropped.
	ErrInvalidFrame = errors.New("invalid frame")
)
