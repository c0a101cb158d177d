package middlewares

import (
	"net/http"

	httperrors "github.com/dropDatabas3/nicue/internal/http/errors"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
)

// WithRecover captura panics y devuelve un 500 en lugar de tumbar el worker.
// El lock del registry nunca queda tomado: los handlers lo sueltan con defer.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log := logger.From(r.Context())
					log.Error("panic recovered",
						logger.Op("recover"),
						logger.Any("panic", rec),
					)
					httperrors.WriteError(w, httperrors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
