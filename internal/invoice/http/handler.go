// Package invoicehttp serves the invoice dashboard and the JSON API.
package invoicehttp

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/export"
	"github.com/facturapro/facturapro/internal/invoice/preview"
	"github.com/facturapro/facturapro/internal/invoice/sections"
	"github.com/facturapro/facturapro/internal/money"
	"github.com/facturapro/facturapro/internal/platform/httpx"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/internal/view"
)

const (
	dashboardPageSize = 20
	ledgerLimit       = 200
)

type invoiceService interface {
	Create(ctx context.Context, ownerID string, doc *invoice.Document) (uuid.UUID, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*invoice.Document, error)
	List(ctx context.Context, ownerID string, filter invoice.ListFilter) ([]*invoice.Document, error)
}

type exporter interface {
	Export(ctx context.Context, key string, doc *invoice.Document, layout *sections.Layout) (export.File, error)
}

type pdfStore interface {
	Load(id uuid.UUID) ([]byte, error)
	Save(id uuid.UUID, data []byte) (string, error)
}

type idempotencyStore interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Complete(ctx context.Context, key, module, resource string) error
	Resource(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key, module string) error
}

// Config wires the invoice handler.
type Config struct {
	Logger      *slog.Logger
	Templates   *view.Engine
	CSRF        *shared.CSRFManager
	Service     invoiceService
	Preview     *preview.Renderer
	Exporter    exporter
	Store       pdfStore
	Issuers     invoice.IssuerSource
	Idempotency idempotencyStore
}

// Handler serves saved invoices.
type Handler struct {
	logger      *slog.Logger
	templates   *view.Engine
	csrf        *shared.CSRFManager
	service     invoiceService
	preview     *preview.Renderer
	exporter    exporter
	store       pdfStore
	issuers     invoice.IssuerSource
	idempotency idempotencyStore
	validate    *validator.Validate
}

// NewHandler constructs the invoice handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		templates:   cfg.Templates,
		csrf:        cfg.CSRF,
		service:     cfg.Service,
		preview:     cfg.Preview,
		exporter:    cfg.Exporter,
		store:       cfg.Store,
		issuers:     cfg.Issuers,
		idempotency: cfg.Idempotency,
		validate:    validator.New(),
	}
}

// MountRoutes registers the dashboard pages under /invoices.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(shared.RequireUser)
	r.Get("/", h.list)
	r.Get("/export.xlsx", h.ledger)
	r.Get("/{id}", h.show)
	r.Get("/{id}/pdf", h.pdf)
}

// MountAPI registers the JSON API under /api/invoices.
func (h *Handler) MountAPI(r chi.Router) {
	r.Use(shared.RequireUser)
	r.Get("/", h.apiList)
	r.Post("/", h.apiCreate)
	r.Get("/{id}", h.apiGet)
}

type dashboardPage struct {
	Query      string
	Rows       []dashboardRow
	Summary    []summaryRow
	Count      int
	Pagination shared.Pagination
}

type dashboardRow struct {
	ID          uuid.UUID
	CompanyName string
	ClientName  string
	Currency    money.Currency
	Total       string
	CreatedAt   string
}

type summaryRow struct {
	Currency money.Currency
	Total    string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := shared.ParsePagination(r.URL.Query().Get("page"), dashboardPageSize)

	docs, err := h.service.List(r.Context(), identity.UserID, invoice.ListFilter{
		Search: query,
		Limit:  page.PerPage,
		Offset: page.Offset(),
	})
	if err != nil {
		h.logger.Error("list invoices", slog.String("user_id", identity.UserID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rows := make([]dashboardRow, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, dashboardRow{
			ID:          doc.ID,
			CompanyName: doc.CompanyName,
			ClientName:  doc.Client.Name,
			Currency:    doc.Currency,
			Total:       doc.Currency.FormatGrouped(doc.Totals().Total),
			CreatedAt:   doc.CreatedAt.Format("02/01/2006"),
		})
	}
	h.render(w, r, "pages/invoices.html", "Mis facturas", dashboardPage{
		Query:      query,
		Rows:       rows,
		Summary:    summaryRows(invoice.Summarize(docs)),
		Count:      len(docs),
		Pagination: page.Observe(len(docs)),
	}, http.StatusOK)
}

func summaryRows(sum invoice.Summary) []summaryRow {
	rows := make([]summaryRow, 0, len(sum.Totals))
	for _, c := range money.Currencies {
		if total, ok := sum.Totals[c]; ok {
			rows = append(rows, summaryRow{Currency: c, Total: c.FormatGrouped(total)})
		}
	}
	return rows
}

type invoicePage struct {
	Document *invoice.Document
	Preview  template.HTML
	Total    string
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	html, err := h.preview.Render(doc, sections.DefaultLayout().EnabledInOrder(), preview.ModeDocument)
	if err != nil {
		h.logger.Error("render invoice preview", slog.String("invoice_id", doc.ID.String()), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/invoice.html", "Factura "+doc.ID.String()[:8], invoicePage{
		Document: doc,
		Preview:  html,
		Total:    doc.Format(doc.Totals().Total),
	}, http.StatusOK)
}

// pdf serves the PDF rendered by the worker, rendering it on demand when the
// worker has not produced it yet.
func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.loadInvoice(w, r)
	if !ok {
		return
	}
	name := export.Filename(doc.CompanyName)
	if h.store != nil {
		if data, err := h.store.Load(doc.ID); err == nil {
			writeFile(w, export.File{Name: name, ContentType: export.ContentTypePDF, Data: data})
			return
		}
	}
	file, err := h.exporter.Export(r.Context(), export.InvoiceKey(doc.ID), doc, sections.DefaultLayout())
	if err != nil {
		h.redirectWithFlash(w, r, "/invoices/"+doc.ID.String(), "danger", "No se pudo generar el PDF, inténtalo de nuevo")
		return
	}
	if h.store != nil {
		if _, err := h.store.Save(doc.ID, file.Data); err != nil {
			h.logger.Warn("store invoice pdf", slog.String("invoice_id", doc.ID.String()), slog.Any("error", err))
		}
	}
	writeFile(w, file)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	docs, err := h.service.List(r.Context(), identity.UserID, invoice.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  ledgerLimit,
	})
	if err != nil {
		h.logger.Error("list invoices for ledger", slog.String("user_id", identity.UserID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteLedger(&buf, docs); err != nil {
		h.logger.Error("write ledger", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeFile(w, export.File{Name: "facturas.xlsx", ContentType: export.ContentTypeXLSX, Data: buf.Bytes()})
}

// loadInvoice resolves {id} for the current identity and fills the issuer
// RTN from the profile. It writes the error response itself.
func (h *Handler) loadInvoice(w http.ResponseWriter, r *http.Request) (*invoice.Document, bool) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	doc, err := h.service.Get(r.Context(), identity.UserID, id)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		h.logger.Error("get invoice", slog.String("invoice_id", id.String()), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	h.applyIssuer(r.Context(), identity.UserID, doc)
	return doc, true
}

func (h *Handler) applyIssuer(ctx context.Context, ownerID string, doc *invoice.Document) {
	if h.issuers == nil {
		return
	}
	issuer, err := h.issuers.Issuer(ctx, ownerID)
	if err != nil {
		h.logger.Warn("resolve issuer", slog.String("user_id", ownerID), slog.Any("error", err))
		return
	}
	doc.ApplyIssuer(issuer)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Identity:    shared.IdentityFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// writeFile streams a finished export as a download.
func writeFile(w http.ResponseWriter, file export.File) {
	httpx.Attachment(w, file.Name, file.ContentType, file.Data)
}
