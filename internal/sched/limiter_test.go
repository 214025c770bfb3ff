package sched

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_SpacesStarts(t *testing.T) {
	const interval = 30 * time.Millisecond
	limiter := NewRateLimiter(interval)
	ctx := context.Background()

	var starts []time.Time
	for i := 0; i < 4; i++ {
		if err := limiter.Throttle(ctx); err != nil {
			t.Fatalf("Throttle: %v", err)
		}
		starts = append(starts, time.Now())
	}

	// Небольшой допуск на гранулярность таймера
	const slack = 5 * time.Millisecond
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < interval-slack {
			t.Errorf("starts %d and %d only %s apart, want >= %s", i-1, i, gap, interval)
		}
	}
}

func TestRateLimiter_ZeroIntervalNoThrottle(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := limiter.Throttle(ctx); err != nil {
			t.Fatalf("Throttle: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero interval should not block, took %s", elapsed)
	}
}

func TestRateLimiter_ThrottleHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	ctx := context.Background()

	if err := limiter.Throttle(ctx); err != nil {
		t.Fatalf("first Throttle: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := limiter.Throttle(cancelCtx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	cap := time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},  // кламп
		{10, time.Second}, // без переполнения
		{60, time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempt, base, cap); got != tt.want {
			t.Errorf("Backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_Defaults(t *testing.T) {
	if got := Backoff(1, 0, 0); got != time.Second {
		t.Errorf("zero base should default to 1s, got %s", got)
	}
}
