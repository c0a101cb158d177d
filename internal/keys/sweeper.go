package keys

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/nicue/internal/observability/logger"
)

// Sweeper corre la limpieza periódica del registry en background.
// Se arranca una sola vez desde main y se detiene cancelando el contexto.
type Sweeper struct {
	store    *Store
	interval time.Duration
	backoff  time.Duration
}

// NewSweeper crea el sweeper. interval default: 3 minutos.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		backoff:  30 * time.Second,
	}
}

// Run ejecuta el loop de limpieza hasta que el contexto se cancele.
// Una iteración que falla se loguea y se reintenta tras un backoff fijo:
// un sweep perdido se auto-corrige en la próxima pasada (o por el lazy
// delete de verify), así que nunca vale la pena tumbar el loop.
func (w *Sweeper) Run(ctx context.Context) error {
	log := logger.Named("sweeper")
	log.Info("background cleanup started", logger.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("background cleanup stopped")
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				log.Error("cleanup iteration failed", logger.Err(err))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(w.backoff):
				}
			}
		}
	}
}

func (w *Sweeper) runOnce(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sweep panic: %v", rec)
		}
	}()

	cleaned := w.store.Sweep(ctx)
	stats := w.store.Snapshot(ctx)

	if cleaned > 0 || stats.ActiveKeys > 0 {
		logger.Named("sweeper").Info("cleanup stats",
			logger.Count(cleaned),
			logger.Int("active_keys", stats.ActiveKeys),
			logger.Int("active_ips", stats.ActiveIPs),
			logger.Float64("memory_usage_pct", stats.MemoryUsagePercentage),
		)
	}
	if stats.MemoryUsagePercentage > 80 {
		logger.Named("sweeper").Warn("high memory usage",
			logger.Float64("memory_usage_pct", stats.MemoryUsagePercentage),
		)
	}
	return nil
}
