package status

import "github.com/dropDatabas3/nicue/internal/keys"

// StatusResponse es la respuesta de GET /status. Embebe el snapshot del
// registry y agrega metadatos del servidor.
type StatusResponse struct {
	Status       string `json:"status"`
	ServerStatus string `json:"server_status"`
	Timestamp    string `json:"timestamp"`
	keys.Stats
}
