package observer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vshulcz/netstats/pkg/observer"
)

type testEvent struct {
	ID string
}

func TestSubject_Publish_NotifiesAll(t *testing.T) {
	subj := observer.NewSubject[testEvent]()
	var mu sync.Mutex
	var called []testEvent

	subj.Attach(observer.ObserverFunc[testEvent](func(_ context.Context, evt testEvent) error {
		mu.Lock()
		defer mu.Unlock()
		called = append(called, evt)
		return nil
	}))

	evt := testEvent{ID: "BytesSent"}
	subj.Publish(context.Background(), evt)

	mu.Lock()
	defer mu.Unlock()
	if len(called) != 1 {
		t.Fatalf("expected 1 call, got %d", len(called))
	}
	if called[0].ID != evt.ID {
		t.Fatalf("event mismatch: %+v", called[0])
	}
}

func TestSubject_Publish_RegistrationOrder(t *testing.T) {
	subj := observer.NewSubject[testEvent]()
	var order []int
	for i := 1; i <= 3; i++ {
		n := i
		subj.Attach(observer.ObserverFunc[testEvent](func(context.Context, testEvent) error {
			order = append(order, n)
			return nil
		}))
	}

	subj.Publish(context.Background(), testEvent{})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestSubject_ErrorHandler(t *testing.T) {
	subj := observer.NewSubject[testEvent]()
	var mu sync.Mutex
	var errs []error

	subj.SetErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})

	subj.Attach(observer.ObserverFunc[testEvent](func(_ context.Context, _ testEvent) error {
		return errors.New("boom")
	}))

	subj.Publish(context.Background(), testEvent{})

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || errs[0].Error() != "boom" {
		t.Fatalf("expected error handler to capture boom, got %+v", errs)
	}
}

func TestSubject_PanicIsRecovered(t *testing.T) {
	subj := observer.NewSubject[testEvent]()
	var errs []error
	subj.SetErrorHandler(func(err error) { errs = append(errs, err) })

	reached := false
	subj.Attach(
		observer.ObserverFunc[testEvent](func(context.Context, testEvent) error { panic("kaboom") }),
		observer.ObserverFunc[testEvent](func(context.Context, testEvent) error {
			reached = true
			return nil
		}),
	)

	subj.Publish(context.Background(), testEvent{})

	if !reached {
		t.Fatal("second observer was not notified after a panic")
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "kaboom") {
		t.Fatalf("expected recovered panic error, got %+v", errs)
	}
}

func TestSubject_SubscribeCancel(t *testing.T) {
	subj := observer.NewSubject[testEvent]()
	calls := 0
	cancel := subj.Subscribe(observer.ObserverFunc[testEvent](func(context.Context, testEvent) error {
		calls++
		return nil
	}))

	subj.Publish(context.Background(), testEvent{})
	cancel()
	cancel()
	subj.Publish(context.Background(), testEvent{})

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if subj.Len() != 0 {
		t.Fatalf("expected no observers after cancel, got %d", subj.Len())
	}
}

func TestSubject_NilSafe(t *testing.T) {
	var subj *observer.Subject[testEvent]
	subj.Publish(context.Background(), testEvent{})
	subj.Attach(observer.ObserverFunc[testEvent](nil))
	subj.SetErrorHandler(nil)
	subj.Subscribe(nil)()
	if subj.Len() != 0 {
		t.Fatal("nil subject must report zero observers")
	}
}
