// Package gate integra el acortador de links que el cliente debe pasar
// antes de poder pedir una key. Para el server es una compuerta opaca:
// o el token viene y valida, o la emisión se rechaza.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/nicue/internal/observability/logger"
)

// Errores de la compuerta. Ambos se traducen al mismo rechazo hacia el
// cliente: nunca un 500 por una falla del proveedor externo.
var (
	ErrTokenRequired = errors.New("gate: token required")
	ErrTokenRejected = errors.New("gate: token rejected by provider")
)

// Client verifica tokens de pasaje contra el proveedor del acortador.
// Sin APIKey configurada opera en modo presencia: basta que el token
// venga no-vacío (el gate real ya corrió fuera de este server).
type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

// New crea el cliente. baseURL vacío deshabilita la llamada remota.
func New(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Status string `json:"status"`
}

// Verify valida el token. Retorna nil si el cliente pasó el gate.
func (c *Client) Verify(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrTokenRequired
	}
	if c.APIKey == "" || c.BaseURL == "" {
		// Modo presencia
		return nil
	}

	body, _ := json.Marshal(verifyRequest{Token: token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify-link", bytes.NewReader(body))
	if err != nil {
		return ErrTokenRejected
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		logger.From(ctx).Warn("gate provider unreachable",
			logger.Component("gate"),
			logger.Err(err),
		)
		return ErrTokenRejected
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrTokenRejected
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return ErrTokenRejected
	}
	if !strings.EqualFold(vr.Status, "success") && !strings.EqualFold(vr.Status, "ok") {
		return ErrTokenRejected
	}
	return nil
}
