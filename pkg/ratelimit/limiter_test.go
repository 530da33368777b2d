package ratelimit

import (
	"testing"
	"time"
)

func TestFixedIntervalJitterBounds(t *testing.T) {
	base := 2 * time.Second
	maxJitter := time.Second

	for i := 0; i < 20; i++ {
		limiter := NewFixedInterval(base, maxJitter)
		interval := limiter.Interval()
		if interval < base {
			t.Errorf("interval %v below base %v", interval, base)
		}
		if interval >= base+maxJitter {
			t.Errorf("interval %v at or above base+jitter %v", interval, base+maxJitter)
		}
	}
}

func TestFixedIntervalStablePerLifetime(t *testing.T) {
	limiter := NewFixedInterval(time.Second, time.Second)

	first := limiter.Interval()
	for i := 0; i < 5; i++ {
		if limiter.Interval() != first {
			t.Fatal("interval changed during limiter lifetime")
		}
	}
}

func TestFixedIntervalNoJitter(t *testing.T) {
	limiter := NewFixedInterval(500*time.Millisecond, 0)
	if limiter.Interval() != 500*time.Millisecond {
		t.Errorf("expected exact base interval, got %v", limiter.Interval())
	}
}

func TestDelayZeroBeforeFirstDispatch(t *testing.T) {
	limiter := NewFixedInterval(2*time.Second, 0)
	if d := limiter.Delay(time.Time{}); d != 0 {
		t.Errorf("expected zero delay before the first dispatch, got %v", d)
	}
}

func TestDelayShrinksAsTimePasses(t *testing.T) {
	limiter := NewFixedInterval(200*time.Millisecond, 0)

	last := time.Now()
	first := limiter.Delay(last)
	if first <= 0 || first > 200*time.Millisecond {
		t.Fatalf("expected delay within (0, 200ms], got %v", first)
	}

	time.Sleep(50 * time.Millisecond)
	second := limiter.Delay(last)
	if second >= first {
		t.Errorf("expected delay to shrink: %v then %v", first, second)
	}

	time.Sleep(200 * time.Millisecond)
	if d := limiter.Delay(last); d != 0 {
		t.Errorf("expected zero delay after interval elapsed, got %v", d)
	}
}
