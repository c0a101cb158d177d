package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/dropDatabas3/nicue/internal/http/middlewares"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec
)

// MetricsConfig agrupa lo necesario para exponer /metrics.
type MetricsConfig struct {
	Registry prometheus.Registerer
	Store    *keysreg.Store
}

// RegisterMetrics inicializa las métricas HTTP y registra un collector sobre
// el registry de keys. Devuelve el handler para /metrics.
func RegisterMetrics(cfg MetricsConfig) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		for _, c := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration, httpInflight} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	if cfg.Store != nil {
		if err := registerCollector(registry, newKeyStoreCollector(cfg.Store)); err != nil {
			return nil, err
		}
	}

	// Usamos el gatherer global por compatibilidad, ya que las métricas se registran allí.
	return promhttp.Handler(), nil
}

// WithMetrics instrumenta requests HTTP con contadores, latencia e inflight.
func WithMetrics() mw.Middleware {
	return func(next http.Handler) http.Handler {
		if httpRequestsTotal == nil || httpRequestDuration == nil || httpInflight == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := strings.ToUpper(r.Method)
			pathLabel := normalizePath(r.URL.Path)

			httpInflight.WithLabelValues(method, pathLabel).Inc()
			start := time.Now()

			rec := &metricsRecorder{ResponseWriter: w}
			defer func() {
				httpInflight.WithLabelValues(method, pathLabel).Dec()
				httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())

				status := rec.status
				if status == 0 {
					status = http.StatusOK
				}
				httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

// normalizePath colapsa segmentos variables para no explotar la cardinalidad.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/verify/") {
		return "/verify/{id}"
	}
	return path
}

type metricsRecorder struct {
	http.ResponseWriter
	status int
}

func (r *metricsRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

// registerCollector registra el collector en el registry, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// keyStoreCollector expone los contadores del registry de keys como gauges.
type keyStoreCollector struct {
	store *keysreg.Store

	activeKeysDesc  *prometheus.Desc
	activeIPsDesc   *prometheus.Desc
	generatedDesc   *prometheus.Desc
	requestsDesc    *prometheus.Desc
	rateLimitedDesc *prometheus.Desc
	cleanedDesc     *prometheus.Desc
	fingerprintDesc *prometheus.Desc
	trackedIPsDesc  *prometheus.Desc
	usagePctDesc    *prometheus.Desc
	uptimeDesc      *prometheus.Desc
}

func newKeyStoreCollector(store *keysreg.Store) *keyStoreCollector {
	return &keyStoreCollector{
		store:           store,
		activeKeysDesc:  prometheus.NewDesc("keyserver_active_keys", "Keys vivas en memoria", nil, nil),
		activeIPsDesc:   prometheus.NewDesc("keyserver_active_ips", "IPs con una key viva", nil, nil),
		generatedDesc:   prometheus.NewDesc("keyserver_keys_generated_total", "Keys generadas desde el arranque", nil, nil),
		requestsDesc:    prometheus.NewDesc("keyserver_issue_requests_total", "Requests de emisión aceptadas por el rate limiter", nil, nil),
		rateLimitedDesc: prometheus.NewDesc("keyserver_rate_limited_total", "Requests de emisión rechazadas por rate limit", nil, nil),
		cleanedDesc:     prometheus.NewDesc("keyserver_expired_cleaned_total", "Keys expiradas removidas por el sweeper", nil, nil),
		fingerprintDesc: prometheus.NewDesc("keyserver_cached_fingerprints", "Fingerprints en el cache", nil, nil),
		trackedIPsDesc:  prometheus.NewDesc("keyserver_rate_tracked_ips", "IPs con ventana de rate limit viva", nil, nil),
		usagePctDesc:    prometheus.NewDesc("keyserver_memory_usage_percentage", "Porcentaje de capacidad del registry en uso", nil, nil),
		uptimeDesc:      prometheus.NewDesc("keyserver_uptime_seconds", "Uptime del registry", nil, nil),
	}
}

func (c *keyStoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeKeysDesc
	ch <- c.activeIPsDesc
	ch <- c.generatedDesc
	ch <- c.requestsDesc
	ch <- c.rateLimitedDesc
	ch <- c.cleanedDesc
	ch <- c.fingerprintDesc
	ch <- c.trackedIPsDesc
	ch <- c.usagePctDesc
	ch <- c.uptimeDesc
}

func (c *keyStoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stats := c.store.Snapshot(ctx)
	ch <- prometheus.MustNewConstMetric(c.activeKeysDesc, prometheus.GaugeValue, float64(stats.ActiveKeys))
	ch <- prometheus.MustNewConstMetric(c.activeIPsDesc, prometheus.GaugeValue, float64(stats.ActiveIPs))
	ch <- prometheus.MustNewConstMetric(c.generatedDesc, prometheus.CounterValue, float64(stats.TotalKeysGenerated))
	ch <- prometheus.MustNewConstMetric(c.requestsDesc, prometheus.CounterValue, float64(stats.TotalRequests))
	ch <- prometheus.MustNewConstMetric(c.rateLimitedDesc, prometheus.CounterValue, float64(stats.RateLimitedRequests))
	ch <- prometheus.MustNewConstMetric(c.cleanedDesc, prometheus.CounterValue, float64(stats.ExpiredKeysCleaned))
	ch <- prometheus.MustNewConstMetric(c.fingerprintDesc, prometheus.GaugeValue, float64(stats.CachedFingerprints))
	ch <- prometheus.MustNewConstMetric(c.trackedIPsDesc, prometheus.GaugeValue, float64(stats.TrackedIPsForRateLimit))
	ch <- prometheus.MustNewConstMetric(c.usagePctDesc, prometheus.GaugeValue, stats.MemoryUsagePercentage)
	ch <- prometheus.MustNewConstMetric(c.uptimeDesc, prometheus.GaugeValue, float64(stats.ServerUptime))
}
