package middlewares

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extrae la IP del cliente, considerando proxies.
// Los controllers la usan como identidad de red para el binding de keys.
func ClientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
