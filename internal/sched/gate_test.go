package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestConcurrencyGate_Bound(t *testing.T) {
	const max = 3
	gate := NewConcurrencyGate(max)
	ctx := context.Background()

	var mu sync.Mutex
	inFlight, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := gate.Admit(ctx); err != nil {
				t.Errorf("Admit: %v", err)
				return
			}

			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()

			gate.Release()
		}()
	}
	wg.Wait()

	if peak > max {
		t.Errorf("in_flight exceeded bound: peak=%d max=%d", peak, max)
	}
	if gate.InFlight() != 0 {
		t.Errorf("all slots should be released, in_flight=%d", gate.InFlight())
	}
}

func TestConcurrencyGate_AdmitHonoursContext(t *testing.T) {
	gate := NewConcurrencyGate(1)
	if err := gate.Admit(context.Background()); err != nil {
		t.Fatalf("first Admit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := gate.Admit(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded on full gate, got %v", err)
	}
}

func TestConcurrencyGate_ReleaseWakesWaiter(t *testing.T) {
	gate := NewConcurrencyGate(1)
	gate.Admit(context.Background())

	admitted := make(chan struct{})
	go func() {
		if err := gate.Admit(context.Background()); err == nil {
			close(admitted)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	gate.Release()

	select {
	case <-admitted:
	case <-time.After(time.Second):
		t.Fatal("Release should wake a blocked Admit")
	}
}

func TestConcurrencyGate_MinimumCapacity(t *testing.T) {
	gate := NewConcurrencyGate(0)
	if gate.Capacity() != 1 {
		t.Errorf("capacity should clamp to 1, got %d", gate.Capacity())
	}
}
