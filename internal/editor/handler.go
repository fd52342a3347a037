package editor

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
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

// draftSessionKey stores the draft id in the session.
const draftSessionKey = "draft_id"

// fetchHeader marks requests issued by editor.js; they receive the refreshed
// preview fragment instead of a redirect.
const fetchHeader = "X-Requested-With"

type invoiceService interface {
	Create(ctx context.Context, ownerID string, doc *invoice.Document) (uuid.UUID, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*invoice.Document, error)
}

type exporter interface {
	Export(ctx context.Context, key string, doc *invoice.Document, layout *sections.Layout) (export.File, error)
}

// Config wires the editor handler.
type Config struct {
	Logger       *slog.Logger
	Templates    *view.Engine
	CSRF         *shared.CSRFManager
	Drafts       *DraftStore
	Preview      *preview.Renderer
	Exporter     exporter
	Invoices     invoiceService
	Issuers      invoice.IssuerSource
	LogoMaxBytes int64
}

// Handler serves the invoice editor.
type Handler struct {
	logger       *slog.Logger
	templates    *view.Engine
	csrf         *shared.CSRFManager
	drafts       *DraftStore
	preview      *preview.Renderer
	exporter     exporter
	invoices     invoiceService
	issuers      invoice.IssuerSource
	logoMaxBytes int64
}

type editorPage struct {
	Document   *invoice.Document
	Sections   []sections.Section
	Preview    template.HTML
	Totals     totalsView
	Currencies []money.Currency
	CanSave    bool
}

type totalsView struct {
	Subtotal string
	TaxLabel string
	Tax      string
	Total    string
}

// NewHandler constructs the editor handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.LogoMaxBytes
	if limit <= 0 {
		limit = 2 << 20
	}
	return &Handler{
		logger:       logger,
		templates:    cfg.Templates,
		csrf:         cfg.CSRF,
		drafts:       cfg.Drafts,
		preview:      cfg.Preview,
		exporter:     cfg.Exporter,
		invoices:     cfg.Invoices,
		issuers:      cfg.Issuers,
		logoMaxBytes: limit,
	}
}

// MountRoutes registers the editor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Get("/preview", h.showPreview)
	r.Post("/action/{action}", h.action)
	r.Post("/export", h.export)
	r.With(shared.RequireUser).Post("/save", h.save)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		h.loadSaved(w, r, raw)
		return
	}
	id, draft, err := h.currentDraft(r)
	if err != nil {
		h.logger.Error("load draft", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if id == "" {
		id, err = h.startDraft(r, draft)
		if err != nil {
			h.logger.Error("start draft", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	html, err := h.preview.Render(draft.Document, draft.Layout.EnabledInOrder(), preview.ModeEditor)
	if err != nil {
		h.logger.Error("render preview", slog.String("draft", id), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	doc := draft.Document
	totals := doc.Totals()
	h.render(w, r, "pages/editor.html", "Editor de facturas", editorPage{
		Document: doc,
		Sections: draft.Layout.All(),
		Preview:  html,
		Totals: totalsView{
			Subtotal: doc.Format(totals.Subtotal),
			TaxLabel: money.TaxLabel(),
			Tax:      doc.Format(totals.Tax),
			Total:    doc.Format(totals.Total),
		},
		Currencies: money.Currencies,
		CanSave:    shared.IdentityFromContext(r.Context()).Authenticated(),
	}, http.StatusOK)
}

// loadSaved copies a saved invoice into the session draft.
func (h *Handler) loadSaved(w http.ResponseWriter, r *http.Request, raw string) {
	identity := shared.IdentityFromContext(r.Context())
	if !identity.Authenticated() {
		http.Redirect(w, r, "/auth/login?next="+r.URL.RequestURI(), http.StatusSeeOther)
		return
	}
	invoiceID, err := uuid.Parse(raw)
	if err != nil {
		h.redirectWithFlash(w, r, "/invoices", "danger", "Identificador de factura inválido")
		return
	}
	doc, err := h.invoices.Get(r.Context(), identity.UserID, invoiceID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			h.redirectWithFlash(w, r, "/invoices", "danger", "Factura no encontrada")
			return
		}
		h.logger.Error("load invoice into editor", slog.String("invoice_id", raw), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/invoices", "danger", "No se pudo cargar la factura")
		return
	}
	h.applyIssuer(r.Context(), identity, doc)
	draft := &Draft{Document: doc, Layout: sections.DefaultLayout()}
	if _, err := h.startDraft(r, draft); err != nil {
		h.logger.Error("store loaded draft", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.redirectWithFlash(w, r, "/editor", "success", "Factura cargada en el editor")
}

func (h *Handler) showPreview(w http.ResponseWriter, r *http.Request) {
	id, draft, err := h.currentDraft(r)
	if err != nil {
		h.logger.Error("load draft", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.writePreview(w, id, draft)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	fetch := r.Header.Get(fetchHeader) == "fetch"

	id, draft, err := h.currentDraft(r)
	if err != nil {
		h.logger.Error("load draft", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if id == "" {
		if id, err = h.startDraft(r, draft); err != nil {
			h.logger.Error("start draft", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	if action == ActionLogoUpload {
		err = h.uploadLogo(r, draft)
	} else {
		if perr := r.ParseForm(); perr != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		err = Apply(draft, action, r.PostForm)
		if err == nil && action == ActionReset {
			h.applyIssuer(r.Context(), shared.IdentityFromContext(r.Context()), draft.Document)
		}
	}
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("editor action", slog.String("action", action), slog.Any("error", err))
		}
		if fetch {
			httpx.RespondError(w, err)
			return
		}
		h.redirectWithFlash(w, r, "/editor", "danger", userMessage(err))
		return
	}

	if err := h.drafts.Save(r.Context(), id, draft); err != nil {
		h.logger.Error("save draft", slog.String("draft", id), slog.Any("error", err))
		if fetch {
			httpx.RespondError(w, err)
			return
		}
		h.redirectWithFlash(w, r, "/editor", "danger", "No se pudo guardar el cambio")
		return
	}
	if fetch {
		h.writePreview(w, id, draft)
		return
	}
	http.Redirect(w, r, "/editor", http.StatusSeeOther)
}

func (h *Handler) uploadLogo(r *http.Request, draft *Draft) error {
	if err := r.ParseMultipartForm(h.logoMaxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return errors.Join(ErrLogo, err)
	}
	file, _, err := r.FormFile("logo")
	if err != nil {
		return errors.Join(ErrLogo, err)
	}
	defer file.Close()
	uri, err := LogoDataURI(file, h.logoMaxBytes)
	if err != nil {
		return err
	}
	return draft.Document.SetLogo(uri)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, draft, err := h.currentDraft(r)
	if err != nil {
		h.logger.Error("load draft", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	key := "draft:" + id
	if id == "" {
		key = "draft:" + NewDraftID()
	}
	file, err := h.exporter.Export(r.Context(), key, draft.Document, draft.Layout)
	if err != nil {
		h.redirectWithFlash(w, r, "/editor", "danger", "No se pudo generar el PDF. Tu factura sigue intacta, inténtalo de nuevo.")
		return
	}
	writeFile(w, file)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	_, draft, err := h.currentDraft(r)
	if err != nil {
		h.logger.Error("load draft", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	invoiceID, err := h.invoices.Create(r.Context(), identity.UserID, draft.Document)
	if err != nil {
		if errors.Is(err, httpx.ErrValidation) {
			h.redirectWithFlash(w, r, "/editor", "danger", userMessage(err))
			return
		}
		h.logger.Error("save invoice", slog.String("user_id", identity.UserID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/editor", "danger", "No se pudo guardar la factura, inténtalo de nuevo")
		return
	}
	h.redirectWithFlash(w, r, "/invoices/"+invoiceID.String(), "success", "Factura guardada")
}

// currentDraft returns the session's draft id ("" when none yet) and draft.
func (h *Handler) currentDraft(r *http.Request) (string, *Draft, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", nil, shared.ErrSessionMissing
	}
	id := sess.Get(draftSessionKey)
	if id == "" {
		return "", NewDraft(), nil
	}
	d, err := h.drafts.Load(r.Context(), id)
	return id, d, err
}

// startDraft binds draft to the session under a new id, prefilling the
// issuer for logged in users.
func (h *Handler) startDraft(r *http.Request, draft *Draft) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", shared.ErrSessionMissing
	}
	h.applyIssuer(r.Context(), shared.IdentityFromContext(r.Context()), draft.Document)
	id := NewDraftID()
	if err := h.drafts.Save(r.Context(), id, draft); err != nil {
		return "", err
	}
	sess.Set(draftSessionKey, id)
	return id, nil
}

func (h *Handler) applyIssuer(ctx context.Context, identity shared.Identity, doc *invoice.Document) {
	if h.issuers == nil || !identity.Authenticated() {
		return
	}
	issuer, err := h.issuers.Issuer(ctx, identity.UserID)
	if err != nil {
		h.logger.Warn("resolve issuer", slog.String("user_id", identity.UserID), slog.Any("error", err))
		return
	}
	doc.ApplyIssuer(issuer)
}

func (h *Handler) writePreview(w http.ResponseWriter, id string, draft *Draft) {
	html, err := h.preview.Render(draft.Document, draft.Layout.EnabledInOrder(), preview.ModeEditor)
	if err != nil {
		h.logger.Error("render preview", slog.String("draft", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
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

// userMessage turns a validation failure into a flash message.
func userMessage(err error) string {
	var verr *invoice.ValidationError
	if errors.As(err, &verr) {
		return "Valor inválido en " + verr.Field + ": " + verr.Message
	}
	if errors.Is(err, httpx.ErrValidation) {
		msg := err.Error()
		if i := strings.LastIndex(msg, "validation failed: "); i >= 0 {
			msg = msg[i+len("validation failed: "):]
		}
		return "Cambio rechazado: " + msg
	}
	return "No se pudo aplicar el cambio"
}
