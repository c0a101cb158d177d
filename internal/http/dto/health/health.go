package health

// HealthResponse es la respuesta de GET /health. Liviana a propósito:
// los balanceadores la consultan cada pocos segundos.
type HealthResponse struct {
	Status     string `json:"status"`
	ActiveKeys int    `json:"active_keys"`
	Uptime     string `json:"uptime"`
	Timestamp  string `json:"timestamp"`
}

// IndexResponse es la respuesta de GET /, un índice navegable de la API.
type IndexResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Endpoints map[string]string `json:"endpoints"`
}
