package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	for _, name := range []string{"db", "outbox", "http"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if want := []string{"http", "outbox", "db"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestShutdownJoinsErrors(t *testing.T) {
	m := New(time.Second, nil)
	boom := errors.New("boom")
	ran := false
	m.Register("first", func(context.Context) error { ran = true; return nil })
	m.Register("second", func(context.Context) error { return boom })
	if err := m.Shutdown(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ran {
		t.Fatalf("later hooks must still run after a failure")
	}
}
