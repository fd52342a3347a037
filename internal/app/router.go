package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/facturapro/facturapro/internal/auth"
	"github.com/facturapro/facturapro/internal/editor"
	invoicehttp "github.com/facturapro/facturapro/internal/invoice/http"
	"github.com/facturapro/facturapro/internal/observability"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/internal/view"
	"github.com/facturapro/facturapro/jobs"
	"github.com/facturapro/facturapro/report"
	"github.com/facturapro/facturapro/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	EditorHandler  *editor.Handler
	InvoiceHandler *invoicehttp.Handler
	ReportHandler  *report.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with FacturaPro defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	// Probes and scrapes skip sessions, CSRF and rate limiting.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		if params.Config == nil || !params.Config.IsProduction() {
			r.Use(chimw.Logger)
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			if shared.IdentityFromContext(r.Context()).Authenticated() {
				http.Redirect(w, r, "/invoices", http.StatusSeeOther)
				return
			}
			sess := shared.SessionFromContext(r.Context())
			csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
			var flash *shared.FlashMessage
			if sess != nil {
				flash = sess.PopFlash()
			}
			data := view.TemplateData{
				Title:       "Facturas profesionales",
				CSRFToken:   csrfToken,
				Flash:       flash,
				CurrentPath: r.URL.Path,
			}
			if err := params.Templates.Render(w, "pages/landing.html", data); err != nil {
				params.Logger.Error("render landing", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})

		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/editor", params.EditorHandler.MountRoutes)
		r.Route("/invoices", params.InvoiceHandler.MountRoutes)
		r.Route("/api/invoices", params.InvoiceHandler.MountAPI)
		if params.ReportHandler != nil {
			r.Route("/report", params.ReportHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets (JS, CSS, fonts, images) are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
