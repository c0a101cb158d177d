// Package health - HealthController atiende GET /health y el índice de la API.
package health

import (
	"net/http"
	"time"

	dto "github.com/dropDatabas3/nicue/internal/http/dto/health"
	"github.com/dropDatabas3/nicue/internal/http/helpers"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
)

// Version se fija en build time via ldflags.
var Version = "dev"

// HealthController responde los checks de liveness y el índice navegable.
type HealthController struct {
	store *keysreg.Store
}

// NewHealthController crea el controller.
func NewHealthController(store *keysreg.Store) *HealthController {
	return &HealthController{store: store}
}

// Health maneja GET /health.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.HealthResponse{
		Status:     "healthy",
		ActiveKeys: c.store.Len(),
		Uptime:     c.store.Uptime().Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// Index maneja GET /, un mapa de los endpoints disponibles.
func (c *HealthController) Index(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, dto.IndexResponse{
		Service: "nicue-keyserver",
		Version: Version,
		Uptime:  c.store.Uptime().Round(time.Second).String(),
		Endpoints: map[string]string{
			"GET /issue":       "emite o reutiliza una key para la IP (requiere client_token si el gate está activo)",
			"GET /verify/{id}": "verifica una key contra IP y fingerprint",
			"GET /status":      "estadísticas operativas del servidor",
			"GET /health":      "liveness check",
			"GET /metrics":     "métricas Prometheus",
		},
	})
}
