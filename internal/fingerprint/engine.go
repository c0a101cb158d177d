// Package fingerprint deriva un token estable que liga la IP del cliente,
// su User-Agent (y opcionalmente un hardware ID) a un bucket horario.
//
// Dentro del mismo bucket el token es determinístico; al cambiar de hora
// rota solo, lo que limita el valor de un fingerprint capturado.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dropDatabas3/nicue/internal/cache"
)

// TokenLength es el largo del fingerprint en caracteres hex.
const TokenLength = 16

// bucketSeconds define el tamaño del bucket temporal (1 hora).
const bucketSeconds = 3600

// Engine computa fingerprints con memoización opcional.
type Engine struct {
	cache    cache.Client
	cacheTTL time.Duration

	// now es inyectable para tests.
	now func() time.Time
}

// New crea un engine. memo puede ser nil (sin cache, solo recomputación).
func New(memo cache.Client, cacheTTL time.Duration) *Engine {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Engine{
		cache:    memo,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// WithClock fija el reloj del engine. Pensado para tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Compute retorna el fingerprint para (ip, clientString, deviceID) en el
// bucket temporal actual. Nunca falla: el cache es solo memoización y la
// clave incluye el bucket, así que una entrada cacheada siempre coincide
// con una recomputación fresca.
func (e *Engine) Compute(ctx context.Context, ip, clientString, deviceID string) string {
	bucket := e.now().Unix() / bucketSeconds
	cacheKey := fmt.Sprintf("%s:%s:%s:%d", ip, clientString, deviceID, bucket)

	if e.cache != nil {
		if v, err := e.cache.Get(ctx, cacheKey); err == nil && v != "" {
			return v
		}
	}

	fp := e.derive(ip, clientString, deviceID, bucket)

	if e.cache != nil {
		_ = e.cache.Set(ctx, cacheKey, fp, e.cacheTTL)
	}
	return fp
}

func (e *Engine) derive(ip, clientString, deviceID string, bucket int64) string {
	combined := fmt.Sprintf("%s:%s:%d", ip, clientString, bucket)
	if deviceID != "" {
		combined = fmt.Sprintf("%s:%s:%s:%d", ip, clientString, deviceID, bucket)
	}
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])[:TokenLength]
}

// CachedCount retorna cuántos fingerprints hay memoizados.
func (e *Engine) CachedCount(ctx context.Context) int {
	if e.cache == nil {
		return 0
	}
	st, err := e.cache.Stats(ctx)
	if err != nil {
		return 0
	}
	return int(st.Keys)
}
