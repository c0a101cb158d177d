// Package status - StatusController atiende GET /status.
package status

import (
	"net/http"
	"time"

	dto "github.com/dropDatabas3/nicue/internal/http/dto/status"
	"github.com/dropDatabas3/nicue/internal/http/helpers"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
)

// StatusController expone las estadísticas operativas del servidor.
type StatusController struct {
	store *keysreg.Store
}

// NewStatusController crea el controller.
func NewStatusController(store *keysreg.Store) *StatusController {
	return &StatusController{store: store}
}

// Status maneja GET /status. Barre expiradas antes del snapshot para que
// los contadores reflejen solo keys vivas.
func (c *StatusController) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c.store.Sweep(ctx)

	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{
		Status:       "success",
		ServerStatus: "running",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Stats:        c.store.Snapshot(ctx),
	})
}
