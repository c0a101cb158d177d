package keys

// VerifyOKResponse es la respuesta de GET /verify/{id} para una key válida.
type VerifyOKResponse struct {
	Status           string `json:"status"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	ExpiresAt        string `json:"expires_at"`
	CreatedAt        string `json:"created_at"`
	Message          string `json:"message,omitempty"`
}

// VerifyFailResponse se devuelve con HTTP 200 cuando la verificación falla
// por una razón de negocio (expirada, IP distinta, fingerprint distinto).
// Los clientes distinguen por el campo code, no por el status HTTP.
type VerifyFailResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
