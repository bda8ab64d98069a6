package codec

import (
	"errors"
	"fmt"

	"github.com/vshulcz/netstats/internal/netstats"
)

var (
	// ErrTruncated is returned when a read runs past the end of the buffer.
	ErrTruncated = errors.New("codec: buffer truncated")
	// ErrMalformed is returned for values that no encoder produces, such as negative counts.
	ErrMalformed = errors.New("codec: malformed buffer")
)

// UnknownMetricTypeError reports a metric header whose type name has no registered factory.
// The rest of the buffer cannot be interpreted once this happens.
type UnknownMetricTypeError struct {
	Index     int
	Container netstats.ContainerType
	TypeName  string
	ID        netstats.MetricID
}

func (e *UnknownMetricTypeError) Error() string {
	return fmt.Sprintf("codec: metric #%d (%s %q, id %s): no factory registered for type name",
		e.Index, e.Container, e.TypeName, e.ID)
}
