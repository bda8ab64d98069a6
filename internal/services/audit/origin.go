package audit

import (
	"context"

	"github.com/vshulcz/netstats/pkg/observer"
)

// Observer receives frame audit events.
type Observer = observer.Observer[Event]

// ObserverFunc adapts a function to Observer.
type ObserverFunc = observer.ObserverFunc[Event]

// Publisher broadcasts audit events.
type Publisher = observer.Publisher[Event]

// Subject fans audit events out to every attached sink.
type Subject = observer.Subject[Event]

// NewSubject returns a subject with the given sinks attached.
func NewSubject(sinks ...Observer) *Subject {
	return observer.NewSubject(sinks...)
}

type originKey struct{}

// WithOrigin records the address a frame was received from.
func WithOrigin(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, originKey{}, addr)
}

// Origin returns the address stored by WithOrigin, or "".
func Origin(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	addr, _ := ctx.Value(originKey{}).(string)
	return addr
}
