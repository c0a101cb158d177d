package keys

import (
	"context"
	"errors"

	"github.com/dropDatabas3/nicue/internal/audit"
	"github.com/dropDatabas3/nicue/internal/gate"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
)

// KeyService define las operaciones de emisión y verificación de keys.
type KeyService interface {
	Issue(ctx context.Context, req IssueRequest) (*keysreg.Credential, bool, error)
	Verify(ctx context.Context, req VerifyRequest) (*keysreg.Credential, error)
}

// IssueRequest agrupa la identidad observada del cliente.
type IssueRequest struct {
	IP           string
	ClientString string
	DeviceID     string
	GateToken    string
}

// VerifyRequest agrupa los datos de una verificación.
type VerifyRequest struct {
	ID           string
	IP           string
	ClientString string
	DeviceID     string
}

// KeyDeps contiene las dependencias del servicio de keys.
type KeyDeps struct {
	Store *keysreg.Store
	Gate  *gate.Client
	// GateEnabled habilita la validación de token del monetizador antes
	// de emitir. Si está apagado se emite sin token.
	GateEnabled bool
}

type keyService struct {
	deps KeyDeps
}

// NewKeyService crea un nuevo KeyService.
func NewKeyService(deps KeyDeps) KeyService {
	return &keyService{deps: deps}
}

// Issue valida el gate (si aplica) y emite o reutiliza una key para la IP.
func (s *keyService) Issue(ctx context.Context, req IssueRequest) (*keysreg.Credential, bool, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("keys.issue"),
	)

	if s.deps.GateEnabled {
		if err := s.deps.Gate.Verify(ctx, req.GateToken); err != nil {
			audit.Log(ctx, audit.EventKeyRejected,
				logger.OwnerIP(req.IP),
				logger.String("reason", "gate"),
			)
			return nil, false, err
		}
	}

	cred, reused, err := s.deps.Store.Issue(ctx, req.IP, req.ClientString, req.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, keysreg.ErrRateLimited):
			audit.Log(ctx, audit.EventRateLimited, logger.OwnerIP(req.IP))
		case errors.Is(err, keysreg.ErrFingerprintMismatch):
			audit.Log(ctx, audit.EventKeyRejected,
				logger.OwnerIP(req.IP),
				logger.String("reason", "fingerprint"),
			)
		}
		return nil, false, err
	}

	event := audit.EventKeyIssued
	if reused {
		event = audit.EventKeyReused
	}
	audit.Log(ctx, event,
		logger.KeyID(cred.ID),
		logger.OwnerIP(cred.IP),
	)
	log.Debug("key issued", logger.KeyID(cred.ID), logger.Any("reused", reused))
	return cred, reused, nil
}

// Verify comprueba una key contra la identidad observada del solicitante.
func (s *keyService) Verify(ctx context.Context, req VerifyRequest) (*keysreg.Credential, error) {
	cred, err := s.deps.Store.Verify(ctx, req.ID, req.IP, req.ClientString, req.DeviceID)
	if err != nil {
		audit.Log(ctx, audit.EventVerifyFailed,
			logger.KeyID(req.ID),
			logger.OwnerIP(req.IP),
			logger.Err(err),
		)
		return nil, err
	}
	return cred, nil
}
