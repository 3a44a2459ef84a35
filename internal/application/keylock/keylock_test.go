package keylock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestAcquire_Exclusion tests that two holders of the same key never overlap.
func TestAcquire_Exclusion(t *testing.T) {
	m := NewManager(time.Second)
	ctx := context.Background()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(ctx, "activity:a1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			defer release()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if max != 1 {
		t.Errorf("max concurrent holders = %d, want 1", max)
	}
}

// TestAcquire_Busy tests that a held key times out with ErrBusy.
func TestAcquire_Busy(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	ctx := context.Background()

	release, err := m.Acquire(ctx, "account:u1:money")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Acquire(ctx, "account:u1:money"); !errors.Is(err, ErrBusy) {
		t.Errorf("second acquire error = %v, want ErrBusy", err)
	}

	release()

	// Released key is immediately acquirable again.
	release2, err := m.Acquire(ctx, "account:u1:money")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

// TestAcquire_IndependentKeys tests that different keys do not contend.
func TestAcquire_IndependentKeys(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	ctx := context.Background()

	r1, err := m.Acquire(ctx, ActivityKey("a1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r1()

	r2, err := m.Acquire(ctx, ActivityKey("a2"))
	if err != nil {
		t.Errorf("independent key blocked: %v", err)
	} else {
		r2()
	}
}

// TestAcquire_ContextCancel tests that a cancelled context aborts the wait.
func TestAcquire_ContextCancel(t *testing.T) {
	m := NewManager(time.Minute)

	release, err := m.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := m.Acquire(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("acquire error = %v, want context.DeadlineExceeded", err)
	}
}

// TestAcquire_EntryCleanup tests that unused entries are removed.
func TestAcquire_EntryCleanup(t *testing.T) {
	m := NewManager(time.Second)

	release, err := m.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()

	m.mu.Lock()
	n := len(m.entries)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("entries remaining after release = %d, want 0", n)
	}
}
