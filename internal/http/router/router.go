// Package router arma el chi.Router del keyserver con sus middleware chains.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthctrl "github.com/dropDatabas3/nicue/internal/http/controllers/health"
	keysctrl "github.com/dropDatabas3/nicue/internal/http/controllers/keys"
	statusctrl "github.com/dropDatabas3/nicue/internal/http/controllers/status"
	httperrors "github.com/dropDatabas3/nicue/internal/http/errors"
	mw "github.com/dropDatabas3/nicue/internal/http/middlewares"
	"github.com/dropDatabas3/nicue/internal/rate"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Keys    *keysctrl.KeyController
	Status  *statusctrl.StatusController
	Health  *healthctrl.HealthController
	Metrics http.Handler

	// GatewayLimiter limita requests por IP en el borde. Opcional.
	GatewayLimiter rate.Limiter
	// BlockedAgents es la denylist de user agents. Vacía deshabilita el filtro.
	BlockedAgents []string
	// Instrument envuelve handlers con las métricas HTTP. Opcional.
	Instrument mw.Middleware
}

// New construye el router completo.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Probes y métricas: sin logging para no inundar el log con scrapes.
	probe := func(h http.HandlerFunc) http.Handler {
		return mw.Chain(h, mw.WithRecover(), mw.WithRequestID())
	}
	r.Method(http.MethodGet, "/health", probe(deps.Health.Health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", mw.Chain(deps.Metrics, mw.WithRecover()))
	}

	// Rutas de negocio: chain completa.
	chain := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	}
	if deps.Instrument != nil {
		chain = append(chain, deps.Instrument)
	}
	if len(deps.BlockedAgents) > 0 {
		chain = append(chain, mw.WithClientFilter(deps.BlockedAgents))
	}
	if deps.GatewayLimiter != nil {
		chain = append(chain, mw.WithRateLimit(mw.RateLimitConfig{
			Limiter: deps.GatewayLimiter,
			Whitelist: map[string]bool{
				"/health":  true,
				"/metrics": true,
			},
		}))
	}
	handler := func(h http.HandlerFunc) http.Handler {
		return mw.Chain(h, chain...)
	}

	r.Method(http.MethodGet, "/", handler(deps.Health.Index))
	r.Method(http.MethodGet, "/issue", handler(deps.Keys.Issue))
	// Alias legado: los clientes viejos piden /getkey.
	r.Method(http.MethodGet, "/getkey", handler(deps.Keys.Issue))
	r.Method(http.MethodGet, "/verify/{id}", handler(deps.Keys.Verify))
	r.Method(http.MethodGet, "/status", handler(deps.Status.Status))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail(req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
