package middlewares

import (
	"net/http"
	"strconv"

	httperrors "github.com/dropDatabas3/nicue/internal/http/errors"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
	"github.com/dropDatabas3/nicue/internal/rate"
)

// RateLimitConfig controla el limiter de borde del gateway. Es independiente
// del límite por IP del registry, que protege la emisión de keys.
type RateLimitConfig struct {
	Limiter rate.Limiter
	// KeyFunc deriva la clave de limitación a partir del request.
	// Por defecto se usa la IP del cliente.
	KeyFunc func(r *http.Request) string
	// Whitelist de paths que no se limitan (health checks, métricas).
	Whitelist map[string]bool
}

// WithRateLimit aplica rate limiting antes de tocar cualquier handler.
// Si el backend del limiter falla se deja pasar el request: preferimos
// degradar el límite a devolver 500 por un Redis caído.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(r *http.Request) string { return ClientIP(r) }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Limiter == nil || cfg.Whitelist[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), keyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable, allowing request",
					logger.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				retry := int(res.RetryAfter.Seconds())
				if retry < 1 {
					retry = 1
				}
				logger.From(r.Context()).Warn("gateway rate limit exceeded",
					logger.ClientIP(ClientIP(r)),
					logger.Count(int(res.CurrentHits)),
				)
				httperrors.WriteError(w, httperrors.ErrRateLimited.WithRetryAfter(retry))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
