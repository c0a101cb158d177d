// Package rate implementa rate limiting por identidad de red.
//
// Dos implementaciones:
//   - MemoryLimiter: sliding window exacto, in-process. Es el limiter del
//     path de emisión de keys (la semántica de ventana deslizante importa).
//   - RedisLimiter: fixed window sencillo (INCR + EXPIRE), para el límite
//     global laxo del gateway cuando se corre detrás de varios frontends.
package rate

import (
	"context"
	"time"
)

// Result contiene el resultado de una consulta al rate limiter.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter define la interfaz mínima para un rate limiter.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config configura un limiter.
type Config struct {
	Driver string // "memory" | "redis"
	Max    int
	Window time.Duration
	Prefix string // solo redis
	Addr   string // solo redis
	DB     int    // solo redis
}

// New crea un limiter según la configuración.
func New(cfg Config) (Limiter, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisLimiter(cfg)
	default:
		return NewMemoryLimiter(cfg.Max, cfg.Window), nil
	}
}
