package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/nicue/internal/fingerprint"
	"github.com/dropDatabas3/nicue/internal/gate"
	healthctrl "github.com/dropDatabas3/nicue/internal/http/controllers/health"
	keysctrl "github.com/dropDatabas3/nicue/internal/http/controllers/keys"
	statusctrl "github.com/dropDatabas3/nicue/internal/http/controllers/status"
	keysvc "github.com/dropDatabas3/nicue/internal/http/services/keys"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
	"github.com/dropDatabas3/nicue/internal/rate"
)

type gatewayOpts struct {
	gateEnabled   bool
	blockedAgents []string
	rateMax       int
}

func newGateway(t *testing.T, opts gatewayOpts) http.Handler {
	t.Helper()

	rateMax := opts.rateMax
	if rateMax == 0 {
		rateMax = 100
	}
	engine := fingerprint.New(nil, time.Hour)
	limiter := rate.NewMemoryLimiter(rateMax, time.Minute)
	store := keysreg.NewStore(keysreg.Config{Lifetime: 10 * time.Minute}, engine, limiter)

	service := keysvc.NewKeyService(keysvc.KeyDeps{
		Store:       store,
		Gate:        gate.New("", ""),
		GateEnabled: opts.gateEnabled,
	})

	return New(Deps{
		Keys:          keysctrl.NewKeyController(service),
		Status:        statusctrl.NewStatusController(store),
		Health:        healthctrl.NewHealthController(store),
		BlockedAgents: opts.blockedAgents,
	})
}

func doGet(h http.Handler, path, ip, ua string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIssueThenVerify(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	rec := doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "success", body["status"])
	id, _ := body["id"].(string)
	require.Len(t, id, 16)
	require.InDelta(t, 600, body["expires_in_seconds"], 2)

	rec = doGet(h, "/verify/"+id, "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, body["expires_at"])
	require.NotEmpty(t, body["created_at"])
}

func TestIssueIsIdempotent(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	first := decode(t, doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0"))
	second := decode(t, doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0"))
	require.Equal(t, first["id"], second["id"])
}

func TestGetkeyAlias(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	rec := doGet(h, "/getkey", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", decode(t, rec)["status"])
}

func TestVerifyFailuresReturn200(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	issued := decode(t, doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0"))
	id := issued["id"].(string)

	cases := []struct {
		name string
		path string
		ip   string
		ua   string
		code string
	}{
		{"bad format", "/verify/nope", "1.2.3.4", "Mozilla/5.0", "INVALID_FORMAT"},
		{"unknown id", "/verify/ABCDEFGH12345678", "1.2.3.4", "Mozilla/5.0", "KEY_NOT_FOUND"},
		{"wrong ip", "/verify/" + id, "9.9.9.9", "Mozilla/5.0", "IP_MISMATCH"},
		{"wrong client", "/verify/" + id, "1.2.3.4", "Other/2.0", "FINGERPRINT_MISMATCH"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := doGet(h, c.path, c.ip, c.ua)
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode(t, rec)
			require.Equal(t, "fail", body["status"])
			require.Equal(t, c.code, body["code"])
		})
	}
}

func TestIssueRateLimited(t *testing.T) {
	h := newGateway(t, gatewayOpts{rateMax: 2})

	doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	rec := doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "error", body["status"])
	require.Equal(t, "RATE_LIMITED", body["code"])
	require.EqualValues(t, 60, body["retry_after"])
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestIssueRequiresGateToken(t *testing.T) {
	h := newGateway(t, gatewayOpts{gateEnabled: true})

	rec := doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "GATE_REQUIRED", decode(t, rec)["code"])

	// En modo presencia cualquier token no vacío pasa.
	rec = doGet(h, "/issue?client_token=tok-1", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)

	// Alias legado del parámetro.
	rec = doGet(h, "/issue?link4m_token=tok-1", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBlockedUserAgent(t *testing.T) {
	h := newGateway(t, gatewayOpts{blockedAgents: []string{"python-requests", "curl"}})

	rec := doGet(h, "/issue", "1.2.3.4", "python-requests/2.31")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "CLIENT_BLOCKED", decode(t, rec)["code"])

	rec = doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)

	// Un request sin User-Agent se trata igual que uno de la denylist.
	rec = doGet(h, "/issue", "1.2.3.4", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "CLIENT_BLOCKED", decode(t, rec)["code"])
}

func TestStatusEndpoint(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	rec := doGet(h, "/status", "8.8.8.8", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "running", body["server_status"])
	require.EqualValues(t, 1, body["total_keys_generated"])
	require.EqualValues(t, 1, body["active_keys"])
	require.NotNil(t, body["memory_usage_percentage"])
}

func TestHealthAndIndex(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	rec := doGet(h, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", decode(t, rec)["status"])

	rec = doGet(h, "/", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, decode(t, rec)["endpoints"])
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	rec := doGet(h, "/nope", "1.2.3.4", "Mozilla/5.0")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "error", body["status"])
	require.Equal(t, "NOT_FOUND", body["code"])
}

func TestMethodNotAllowed(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	req := httptest.NewRequest(http.MethodPost, "/issue", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	h := newGateway(t, gatewayOpts{})

	rec := doGet(h, "/issue", "1.2.3.4", "Mozilla/5.0")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
