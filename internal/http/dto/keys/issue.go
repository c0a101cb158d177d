package keys

// IssueResponse es la respuesta de GET /issue cuando la key se emite
// o se reutiliza. El formato de timestamps es RFC3339 UTC.
type IssueResponse struct {
	Status           string `json:"status"`
	ID               string `json:"id"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	ExpiresAt        string `json:"expires_at"`
	ServerTime       string `json:"server_time"`
	Message          string `json:"message,omitempty"`
}
