package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: sliding window exacto sobre timestamps en memoria.
// Un intento rechazado NO se registra, así que no cuenta contra
// ventanas futuras.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time

	// now es inyectable para tests.
	now func() time.Time
}

// NewMemoryLimiter crea un limiter de ventana deslizante.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		max:     max,
		window:  window,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// WithClock fija el reloj del limiter. Pensado para tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

// Allow consulta y, si hay cupo, registra el request actual.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Prune lazy de timestamps fuera de la ventana
	recent := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.entries[key] = recent
		// RetryAfter: hasta que el timestamp más viejo salga de la ventana
		retry := recent[0].Add(l.window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Result{
			Allowed:     false,
			Remaining:   0,
			RetryAfter:  retry,
			WindowTTL:   retry,
			CurrentHits: int64(len(recent)),
		}, nil
	}

	recent = append(recent, now)
	l.entries[key] = recent
	return Result{
		Allowed:     true,
		Remaining:   int64(l.max - len(recent)),
		WindowTTL:   l.window,
		CurrentHits: int64(len(recent)),
	}, nil
}

// Prune elimina keys sin actividad dentro de la ventana.
// Lo invoca el sweeper para acotar memoria.
func (l *MemoryLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for key, times := range l.entries {
		recent := times[:0]
		for _, ts := range times {
			if ts.After(cutoff) {
				recent = append(recent, ts)
			}
		}
		if len(recent) == 0 {
			delete(l.entries, key)
		} else {
			l.entries[key] = recent
		}
	}
}

// Len retorna cuántas identidades tienen ventana activa.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
