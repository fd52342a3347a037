package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturapro/facturapro/internal/auth"
	"github.com/facturapro/facturapro/internal/editor"
	invoicehttp "github.com/facturapro/facturapro/internal/invoice/http"
	"github.com/facturapro/facturapro/internal/invoice/preview"
	"github.com/facturapro/facturapro/internal/observability"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/internal/view"
	"github.com/facturapro/facturapro/jobs"
)

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, LogoMaxBytes: 1 << 20}
	sessions := shared.NewSessionManager(client, "fp_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	renderer, err := preview.NewRenderer()
	require.NoError(t, err)

	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(logger, auth.NewService(nil), templates, sessions, csrf),
		EditorHandler: editor.NewHandler(editor.Config{
			Logger:    logger,
			Templates: templates,
			CSRF:      csrf,
			Drafts:    editor.NewDraftStore(client, time.Hour),
			Preview:   renderer,
		}),
		InvoiceHandler: invoicehttp.NewHandler(invoicehttp.Config{Logger: logger, Templates: templates, CSRF: csrf, Preview: renderer}),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        observability.NewMetrics(),
	})
}

func TestHealthzAndStatic(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/css")
}

func TestLandingSetsSecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Facturas profesionales en minutos")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
	assert.NotEmpty(t, rr.Header().Get("Set-Cookie"))
}

func TestInvoicesRequireLogin(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login?next=%2Finvoices", rr.Header().Get("Location"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/invoices", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestEditorActionNeedsCSRFToken(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/editor", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	match := csrfMeta.FindStringSubmatch(rr.Body.String())
	require.Len(t, match, 2)

	post := func(token string) *httptest.ResponseRecorder {
		form := url.Values{"company_name": {"Distribuidora Atlántida"}}
		req := httptest.NewRequest(http.MethodPost, "/editor/action/company", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Requested-With", "fetch")
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, post("").Code)
	assert.Equal(t, http.StatusForbidden, post("forged").Code)

	ok := post(match[1])
	require.Equal(t, http.StatusOK, ok.Code)
	assert.Contains(t, ok.Body.String(), "Distribuidora Atlántida")
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "facturapro_http_requests_total")
}
