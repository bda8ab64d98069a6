package netstats

import "errors"

var (
	// ErrUnknownMetricID is returned when an id is not present in the registry.
	ErrUnknownMetricID = errors.New("unknown metric id")
	// ErrDuplicateMetricID indicates an id was added twice to a collection or dispatcher.
	ErrDuplicateMetricID = errors.New("duplicate metric id")
	// ErrUnregisteredType indicates a metric type name that was never registered.
	ErrUnregisteredType = errors.New("unregistered metric type")
)
