// Package keys - KeyController atiende GET /issue y GET /verify/{id}.
package keys

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/nicue/internal/gate"
	dto "github.com/dropDatabas3/nicue/internal/http/dto/keys"
	httperrors "github.com/dropDatabas3/nicue/internal/http/errors"
	"github.com/dropDatabas3/nicue/internal/http/helpers"
	"github.com/dropDatabas3/nicue/internal/http/middlewares"
	svc "github.com/dropDatabas3/nicue/internal/http/services/keys"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
)

// Header con el identificador de hardware que mandan los clientes nativos.
const headerDeviceID = "X-Hardware-ID"

// KeyController maneja los endpoints de emisión y verificación.
type KeyController struct {
	service svc.KeyService
}

// NewKeyController crea el controller.
func NewKeyController(s svc.KeyService) *KeyController {
	return &KeyController{service: s}
}

// Issue maneja GET /issue. El token del gate llega por query string:
// client_token, con link4m_token como alias legado.
func (c *KeyController) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("keys.issue"))

	token := strings.TrimSpace(r.URL.Query().Get("client_token"))
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("link4m_token"))
	}

	req := svc.IssueRequest{
		IP:           middlewares.ClientIP(r),
		ClientString: r.UserAgent(),
		DeviceID:     r.Header.Get(headerDeviceID),
		GateToken:    token,
	}

	cred, reused, err := c.service.Issue(ctx, req)
	if err != nil {
		c.writeIssueError(w, log, err)
		return
	}

	now := time.Now().UTC()
	msg := "Key generada"
	if reused {
		msg = "Ya tenés una key activa para esta IP"
	}
	helpers.WriteJSON(w, http.StatusOK, dto.IssueResponse{
		Status:           "success",
		ID:               cred.ID,
		ExpiresInSeconds: int64(cred.ExpiresIn(now).Seconds()),
		ExpiresAt:        cred.ExpiresAt.UTC().Format(time.RFC3339),
		ServerTime:       now.Format(time.RFC3339),
		Message:          msg,
	})
}

func (c *KeyController) writeIssueError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, gate.ErrTokenRequired), errors.Is(err, gate.ErrTokenRejected):
		httperrors.WriteError(w, httperrors.ErrGateRequired)
	case errors.Is(err, keysreg.ErrRateLimited):
		httperrors.WriteError(w, httperrors.ErrRateLimited.WithRetryAfter(60))
	case errors.Is(err, keysreg.ErrFingerprintMismatch):
		httperrors.WriteError(w, httperrors.ErrFingerprintMismatch)
	case errors.Is(err, keysreg.ErrCapacity):
		httperrors.WriteError(w, httperrors.ErrCapacity)
	default:
		log.Error("issue failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal)
	}
}

// Verify maneja GET /verify/{id}. Los fallos de negocio se responden con
// HTTP 200 y status "fail": los clientes distinguen por el campo code.
func (c *KeyController) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("keys.verify"))

	req := svc.VerifyRequest{
		ID:           chi.URLParam(r, "id"),
		IP:           middlewares.ClientIP(r),
		ClientString: r.UserAgent(),
		DeviceID:     r.Header.Get(headerDeviceID),
	}

	cred, err := c.service.Verify(ctx, req)
	if err != nil {
		code, msg, ok := verifyFailCode(err)
		if !ok {
			log.Error("verify failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternal)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, dto.VerifyFailResponse{
			Status:  "fail",
			Code:    code,
			Message: msg,
		})
		return
	}

	now := time.Now().UTC()
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyOKResponse{
		Status:           "ok",
		ExpiresInSeconds: int64(cred.ExpiresIn(now).Seconds()),
		ExpiresAt:        cred.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:        cred.CreatedAt.UTC().Format(time.RFC3339),
		Message:          "Key válida",
	})
}

func verifyFailCode(err error) (code, msg string, ok bool) {
	switch {
	case errors.Is(err, keysreg.ErrInvalidFormat):
		return "INVALID_FORMAT", "Formato de key inválido", true
	case errors.Is(err, keysreg.ErrNotFound):
		return "KEY_NOT_FOUND", "La key no existe", true
	case errors.Is(err, keysreg.ErrExpired):
		return "EXPIRED", "La key expiró", true
	case errors.Is(err, keysreg.ErrIPMismatch):
		return "IP_MISMATCH", "La key pertenece a otra IP", true
	case errors.Is(err, keysreg.ErrFingerprintMismatch):
		return "FINGERPRINT_MISMATCH", "El fingerprint del cliente no coincide", true
	}
	return "", "", false
}
