package middlewares

import (
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/nicue/internal/http/errors"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
)

// WithClientFilter rechaza user agents de la denylist (scrapers y scripts
// que abusan del endpoint de emisión) y requests sin User-Agent, que en la
// práctica son siempre scripts. El match es por substring, case insensitive,
// igual que los agentes se anuncian en la práctica.
func WithClientFilter(blocked []string) Middleware {
	patterns := make([]string, 0, len(blocked))
	for _, b := range blocked {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			patterns = append(patterns, b)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := strings.ToLower(strings.TrimSpace(r.UserAgent()))
			if ua == "" {
				logger.From(r.Context()).Warn("blocked client without user agent",
					logger.ClientIP(ClientIP(r)),
				)
				httperrors.WriteError(w, httperrors.ErrClientBlocked)
				return
			}
			for _, p := range patterns {
				if strings.Contains(ua, p) {
					logger.From(r.Context()).Warn("blocked client agent",
						logger.UserAgent(r.UserAgent()),
						logger.ClientIP(ClientIP(r)),
					)
					httperrors.WriteError(w, httperrors.ErrClientBlocked)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
