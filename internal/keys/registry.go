package keys

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/nicue/internal/fingerprint"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
	"github.com/dropDatabas3/nicue/internal/rate"
)

// maxIDAttempts acota los reintentos ante colisión de ID. Una colisión es
// astronómicamente improbable, pero nunca se sobreescribe una key viva.
const maxIDAttempts = 5

// Config del registry. Los defaults replican las constantes del servicio.
type Config struct {
	Lifetime time.Duration // vida de cada key (default 20m)
	IDLength int           // largo del ID (default 16)
	Capacity int           // máximo de keys vivas en memoria (default 10000)
}

func (c *Config) setDefaults() {
	if c.Lifetime <= 0 {
		c.Lifetime = 20 * time.Minute
	}
	if c.IDLength <= 0 {
		c.IDLength = IDLength
	}
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
}

// Store es la fuente de verdad de keys emitidas. Todas las mutaciones al
// mapa de keys y al índice por IP pasan por su mutex; el fingerprint se
// computa antes de tomar el lock para no hacer I/O con el lock tomado.
type Store struct {
	mu      sync.Mutex
	keys    map[string]*Credential
	ipIndex map[string]string // IP -> ID de su key viva

	engine  *fingerprint.Engine
	limiter *rate.MemoryLimiter
	cfg     Config

	startedAt time.Time

	totalGenerated atomic.Uint64
	totalRequests  atomic.Uint64
	rateLimited    atomic.Uint64
	expiredCleaned atomic.Uint64

	// now es inyectable para tests.
	now func() time.Time
}

// NewStore crea el registry.
func NewStore(cfg Config, engine *fingerprint.Engine, limiter *rate.MemoryLimiter) *Store {
	cfg.setDefaults()
	return &Store{
		keys:      make(map[string]*Credential),
		ipIndex:   make(map[string]string),
		engine:    engine,
		limiter:   limiter,
		cfg:       cfg,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Issue emite (o re-entrega) una key para la IP dada. El bool indica si se
// reutilizó una key viva existente (mismo fingerprint, emisión idempotente).
//
// Orden de chequeos: rate limit -> key viva existente -> capacidad ->
// generación con chequeo de colisión -> guardado e indexado.
func (s *Store) Issue(ctx context.Context, ip, clientString, deviceID string) (*Credential, bool, error) {
	res, _ := s.limiter.Allow(ctx, ip)
	if !res.Allowed {
		s.rateLimited.Add(1)
		return nil, false, ErrRateLimited
	}
	s.totalRequests.Add(1)

	clientString = truncateClientString(clientString)
	fp := s.engine.Compute(ctx, ip, clientString, deviceID)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// ¿Ya hay key viva para esta IP?
	if id, ok := s.ipIndex[ip]; ok {
		if cred, ok := s.keys[id]; ok && !cred.ExpiredAt(now) {
			if cred.Fingerprint == fp {
				return cred, true, nil
			}
			// Misma IP, cliente aparentemente distinto: sospechoso,
			// no se pisa la key viva.
			return nil, false, ErrFingerprintMismatch
		}
	}

	if len(s.keys) >= s.cfg.Capacity {
		s.sweepLocked(now)
		if len(s.keys) >= s.cfg.Capacity {
			logger.From(ctx).Warn("registry at capacity, rejecting issuance",
				logger.Component("registry"),
				logger.Int("capacity", s.cfg.Capacity),
			)
			return nil, false, ErrCapacity
		}
	}

	id, err := s.newIDLocked(now)
	if err != nil {
		return nil, false, err
	}

	cred := &Credential{
		ID:           id,
		IP:           ip,
		Fingerprint:  fp,
		ClientString: clientString,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.Lifetime),
	}
	s.keys[id] = cred
	s.ipIndex[ip] = id
	s.totalGenerated.Add(1)

	return cred, false, nil
}

// newIDLocked genera un ID único contra las keys actuales. Se llama con
// el lock tomado. Agotar los reintentos no es un problema de capacidad
// sino de generación, y se reporta como tal.
func (s *Store) newIDLocked(now time.Time) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := generateID(s.cfg.IDLength, now)
		if _, exists := s.keys[id]; !exists {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Verify valida una key presentada contra su binding. Si la key existe pero
// venció, la borra en el acto (lazy deletion) y reporta ErrExpired.
func (s *Store) Verify(ctx context.Context, id, ip, clientString, deviceID string) (*Credential, error) {
	if !ValidID(id) {
		return nil, ErrInvalidFormat
	}

	fp := s.engine.Compute(ctx, ip, truncateClientString(clientString), deviceID)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.keys[id]
	if !ok {
		return nil, ErrNotFound
	}

	if cred.ExpiredAt(now) {
		delete(s.keys, id)
		// El índice puede apuntar ya a una key más nueva de la misma IP;
		// solo se limpia si todavía apunta a esta.
		if cur, ok := s.ipIndex[cred.IP]; ok && cur == id {
			delete(s.ipIndex, cred.IP)
		}
		return nil, ErrExpired
	}

	if cred.IP != ip {
		logger.From(ctx).Warn("ip mismatch on verify",
			logger.Component("registry"),
			logger.KeyID(id),
			logger.OwnerIP(cred.IP),
			logger.ClientIP(ip),
		)
		return nil, ErrIPMismatch
	}

	if cred.Fingerprint != fp {
		return nil, ErrFingerprintMismatch
	}

	return cred, nil
}

// Sweep recorre todas las keys y borra las vencidas; también poda las
// ventanas de rate limit sin actividad. Idempotente: sobre un registry
// limpio no remueve nada. Retorna cuántas keys quitó.
func (s *Store) Sweep(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	removed := s.sweepLocked(now)
	s.mu.Unlock()

	s.limiter.Prune()
	// El cache de fingerprints expira solo (TTL del driver).

	if removed > 0 {
		logger.From(ctx).Info("cleaned up expired keys",
			logger.Component("registry"),
			logger.Count(removed),
		)
	}
	return removed
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for id, cred := range s.keys {
		if !cred.ExpiredAt(now) {
			continue
		}
		delete(s.keys, id)
		if cur, ok := s.ipIndex[cred.IP]; ok && cur == id {
			delete(s.ipIndex, cred.IP)
		}
		removed++
	}
	if removed > 0 {
		s.expiredCleaned.Add(uint64(removed))
	}
	return removed
}

// Len retorna la cantidad de keys vivas.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Capacity retorna el techo configurado.
func (s *Store) Capacity() int { return s.cfg.Capacity }

// Lifetime retorna la vida configurada de una key.
func (s *Store) Lifetime() time.Duration { return s.cfg.Lifetime }

// Uptime retorna cuánto lleva corriendo el registry.
func (s *Store) Uptime() time.Duration { return s.now().Sub(s.startedAt) }
