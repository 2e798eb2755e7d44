package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"potencialize/internal/apperr"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "deal:1", time.Second)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
}

func TestLocalDifferentKeysIndependent(t *testing.T) {
	l := NewLocal()
	r1, err := l.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer r1()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	r2, err := l.Acquire(ctx, "b", time.Second)
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	r2()
}

func TestLocalAcquireHonoursContext(t *testing.T) {
	l := NewLocal()
	release, _ := l.Acquire(context.Background(), "k", time.Second)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "k", time.Second); !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected transient error on timeout, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewLocal()
	release, _ := l.Acquire(context.Background(), "k", time.Second)
	release()
	release()
	again, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again()
}
