// Package audit emite eventos de auditoría estructurados. Hoy el sink es
// el logger; el formato (event id + campos) está pensado para poder
// enchufarle un sink externo sin tocar a los callers.
package audit

import (
	"context"

	"github.com/dropDatabas3/nicue/internal/observability/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Eventos conocidos.
const (
	EventKeyIssued    = "key_issued"
	EventKeyReused    = "key_reused"
	EventKeyRejected  = "key_rejected"
	EventVerifyFailed = "verify_failed"
	EventRateLimited  = "rate_limited"
)

// Log registra un evento de auditoría con un ID único.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all,
		zap.String("event", event),
		zap.String("event_id", uuid.NewString()),
	)
	all = append(all, fields...)
	logger.From(ctx).Named("audit").Info("audit", all...)
}
