// Package keys contiene el registry en memoria de keys de acceso:
// emisión, verificación y limpieza de keys con TTL, ligadas a la IP
// y al fingerprint del cliente que las pidió.
package keys

import (
	"crypto/rand"
	"errors"
	mrand "math/rand/v2"
	"time"
)

// IDLength es el largo fijo del ID de una key.
const IDLength = 16

// maxClientString acota el user-agent almacenado.
const maxClientString = 100

const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Errores del registry. El gateway los traduce a códigos de rechazo.
var (
	ErrRateLimited         = errors.New("keys: rate limit exceeded")
	ErrFingerprintMismatch = errors.New("keys: fingerprint mismatch")
	ErrCapacity            = errors.New("keys: registry at capacity")
	ErrIDExhausted         = errors.New("keys: could not generate a unique id")
	ErrInvalidFormat       = errors.New("keys: invalid key format")
	ErrNotFound            = errors.New("keys: key not found")
	ErrExpired             = errors.New("keys: key expired")
	ErrIPMismatch          = errors.New("keys: ip mismatch")
)

// Credential es una key emitida. Inmutable una vez guardada en el registry;
// solo su presencia cambia (la borra el sweeper o un verify que la ve vencida).
type Credential struct {
	ID           string
	IP           string
	Fingerprint  string
	ClientString string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// ExpiresIn retorna el tiempo de vida restante (0 si ya venció).
func (c *Credential) ExpiresIn(now time.Time) time.Duration {
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ExpiredAt indica si la key ya venció en el instante dado.
func (c *Credential) ExpiredAt(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// ValidID valida el formato de un ID antes de consultar el registry:
// largo exacto y solo alfanuméricos. Así un ID malformado se rechaza
// barato y sin filtrar información de existencia.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= '0' && ch <= '9':
		case ch >= 'A' && ch <= 'Z':
		case ch >= 'a' && ch <= 'z':
		default:
			return false
		}
	}
	return true
}

// generateID crea un ID con múltiples fuentes de entropía: los últimos 6
// dígitos del timestamp en microsegundos más caracteres aleatorios, y un
// shuffle final para que la parte temporal no quede en posición fija.
func generateID(length int, now time.Time) string {
	if length <= 0 {
		length = IDLength
	}

	micros := now.UnixMicro()
	ts := make([]byte, 0, 6)
	for i := 0; i < 6; i++ {
		ts = append(ts, byte('0'+micros%10))
		micros /= 10
	}

	n := length - len(ts)
	if n < 0 {
		n = 0
		ts = ts[:length]
	}
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = idCharset[int(buf[i])%len(idCharset)]
	}

	id := append(ts, buf...)
	mrand.Shuffle(len(id), func(i, j int) {
		id[i], id[j] = id[j], id[i]
	})
	return string(id)
}

func truncateClientString(s string) string {
	if len(s) > maxClientString {
		return s[:maxClientString]
	}
	return s
}
