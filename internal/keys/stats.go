package keys

import "context"

// Stats es un snapshot de los contadores del registry.
type Stats struct {
	TotalKeysGenerated     uint64  `json:"total_keys_generated"`
	TotalRequests          uint64  `json:"total_requests"`
	RateLimitedRequests    uint64  `json:"rate_limited_requests"`
	ExpiredKeysCleaned     uint64  `json:"expired_keys_cleaned"`
	ActiveKeys             int     `json:"active_keys"`
	ActiveIPs              int     `json:"active_ips"`
	CachedFingerprints     int     `json:"cached_fingerprints"`
	TrackedIPsForRateLimit int     `json:"tracked_ips_for_rate_limit"`
	ServerUptime           int64   `json:"server_uptime"`
	MemoryUsageKeys        int     `json:"memory_usage_keys"`
	MemoryUsagePercentage  float64 `json:"memory_usage_percentage"`
}

// Snapshot arma el snapshot de estadísticas actual.
func (s *Store) Snapshot(ctx context.Context) Stats {
	s.mu.Lock()
	activeKeys := len(s.keys)
	activeIPs := len(s.ipIndex)
	s.mu.Unlock()

	pct := float64(activeKeys) / float64(s.cfg.Capacity) * 100
	if pct > 100 {
		pct = 100
	}

	return Stats{
		TotalKeysGenerated:     s.totalGenerated.Load(),
		TotalRequests:          s.totalRequests.Load(),
		RateLimitedRequests:    s.rateLimited.Load(),
		ExpiredKeysCleaned:     s.expiredCleaned.Load(),
		ActiveKeys:             activeKeys,
		ActiveIPs:              activeIPs,
		CachedFingerprints:     s.engine.CachedCount(ctx),
		TrackedIPsForRateLimit: s.limiter.Len(),
		ServerUptime:           int64(s.now().Sub(s.startedAt).Seconds()),
		MemoryUsageKeys:        activeKeys,
		MemoryUsagePercentage:  pct,
	}
}
