package fingerprint

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/nicue/internal/cache"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestComputeDeterministic(t *testing.T) {
	e := New(nil, time.Hour).WithClock(fixedClock(time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)))
	ctx := context.Background()

	a := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1")
	b := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1")
	if a != b {
		t.Fatalf("same inputs produced %q and %q", a, b)
	}
	if len(a) != TokenLength {
		t.Fatalf("len = %d, want %d", len(a), TokenLength)
	}
}

func TestComputeVariesByInput(t *testing.T) {
	e := New(nil, time.Hour).WithClock(fixedClock(time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)))
	ctx := context.Background()

	base := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1")
	if got := e.Compute(ctx, "9.9.9.9", "Mozilla/5.0", "hw-1"); got == base {
		t.Fatal("different ip should change the fingerprint")
	}
	if got := e.Compute(ctx, "1.2.3.4", "Other/2.0", "hw-1"); got == base {
		t.Fatal("different client string should change the fingerprint")
	}
	if got := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-2"); got == base {
		t.Fatal("different device id should change the fingerprint")
	}
	if got := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", ""); got == base {
		t.Fatal("missing device id should change the fingerprint")
	}
}

func TestComputeRotatesWithHourBucket(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	e := New(nil, time.Hour).WithClock(fixedClock(at))
	ctx := context.Background()

	before := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "")
	// Dentro del mismo bucket no cambia.
	e.WithClock(fixedClock(at.Add(30 * time.Minute)))
	if got := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", ""); got != before {
		t.Fatal("fingerprint changed inside the same hour bucket")
	}
	// Al cruzar la hora rota.
	e.WithClock(fixedClock(at.Add(time.Hour)))
	if got := e.Compute(ctx, "1.2.3.4", "Mozilla/5.0", ""); got == before {
		t.Fatal("fingerprint did not rotate across hour buckets")
	}
}

func TestComputeCacheAgreesWithFresh(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	memo := cache.NewMemory("fp", time.Hour)
	cached := New(memo, time.Hour).WithClock(fixedClock(at))
	fresh := New(nil, time.Hour).WithClock(fixedClock(at))
	ctx := context.Background()

	// Puebla el cache y vuelve a leer de él.
	first := cached.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1")
	second := cached.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1")
	want := fresh.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1")
	if first != want || second != want {
		t.Fatalf("cached results (%q, %q) disagree with fresh %q", first, second, want)
	}

	// La clave del cache incluye el bucket: al rotar la hora una entrada
	// vieja no puede servirse por error.
	next := at.Add(time.Hour)
	cached.WithClock(fixedClock(next))
	fresh.WithClock(fixedClock(next))
	if got, want := cached.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1"), fresh.Compute(ctx, "1.2.3.4", "Mozilla/5.0", "hw-1"); got != want {
		t.Fatalf("after bucket rotation cache returned %q, fresh %q", got, want)
	}

	if cached.CachedCount(ctx) == 0 {
		t.Fatal("expected memoized fingerprints in the cache")
	}
}
