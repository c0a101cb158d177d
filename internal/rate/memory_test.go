package rate

import (
	"context"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestMemoryLimiterWindow(t *testing.T) {
	clock := newStepClock()
	l := NewMemoryLimiter(3, time.Minute).WithClock(clock.now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip-1")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if want := int64(3 - i - 1); res.Remaining != want {
			t.Fatalf("remaining = %d, want %d", res.Remaining, want)
		}
	}

	res, err := l.Allow(ctx, "ip-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("fourth request inside the window should be denied")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("retry after = %v, want (0, 1m]", res.RetryAfter)
	}

	// Otra key tiene su propia ventana.
	if res, _ := l.Allow(ctx, "ip-2"); !res.Allowed {
		t.Fatal("different key should not share the window")
	}
}

func TestMemoryLimiterDeniedAttemptsDoNotCount(t *testing.T) {
	clock := newStepClock()
	l := NewMemoryLimiter(2, time.Minute).WithClock(clock.now)
	ctx := context.Background()

	l.Allow(ctx, "ip-1")
	l.Allow(ctx, "ip-1")
	// Rechazos repetidos no deben extender el castigo.
	for i := 0; i < 10; i++ {
		if res, _ := l.Allow(ctx, "ip-1"); res.Allowed {
			t.Fatal("expected denial inside the window")
		}
	}

	clock.advance(61 * time.Second)
	if res, _ := l.Allow(ctx, "ip-1"); !res.Allowed {
		t.Fatal("window should reset once the original hits age out")
	}
}

func TestMemoryLimiterSlidingBehavior(t *testing.T) {
	clock := newStepClock()
	l := NewMemoryLimiter(2, time.Minute).WithClock(clock.now)
	ctx := context.Background()

	l.Allow(ctx, "ip-1") // t=0
	clock.advance(40 * time.Second)
	l.Allow(ctx, "ip-1") // t=40s

	clock.advance(10 * time.Second) // t=50s: ambos en ventana
	if res, _ := l.Allow(ctx, "ip-1"); res.Allowed {
		t.Fatal("both hits still inside the window")
	}

	clock.advance(15 * time.Second) // t=65s: el primero salió
	if res, _ := l.Allow(ctx, "ip-1"); !res.Allowed {
		t.Fatal("oldest hit left the window, request should pass")
	}
}

func TestMemoryLimiterPrune(t *testing.T) {
	clock := newStepClock()
	l := NewMemoryLimiter(5, time.Minute).WithClock(clock.now)
	ctx := context.Background()

	l.Allow(ctx, "ip-1")
	clock.advance(30 * time.Second)
	l.Allow(ctx, "ip-2")

	if got := l.Len(); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}

	clock.advance(45 * time.Second) // ip-1 fuera de ventana, ip-2 adentro
	l.Prune()
	if got := l.Len(); got != 1 {
		t.Fatalf("len after prune = %d, want 1", got)
	}

	clock.advance(time.Minute)
	l.Prune()
	if got := l.Len(); got != 0 {
		t.Fatalf("len after second prune = %d, want 0", got)
	}
}
