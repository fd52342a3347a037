package invoicehttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/money"
	"github.com/facturapro/facturapro/internal/platform/httpx"
	"github.com/facturapro/facturapro/internal/shared"
)

// IdempotencyHeader lets API clients retry a create safely.
const IdempotencyHeader = "Idempotency-Key"

type apiInvoice struct {
	*invoice.Document
	Totals money.Totals `json:"totals"`
}

type apiList struct {
	Invoices []apiInvoice                       `json:"invoices"`
	Count    int                                `json:"count"`
	Totals   map[money.Currency]decimal.Decimal `json:"totals"`
}

type createItem struct {
	Name  string          `json:"name" validate:"max=200"`
	Price decimal.Decimal `json:"price"`
}

type createClient struct {
	Name    string `json:"name" validate:"max=200"`
	TaxID   string `json:"rtn" validate:"max=32"`
	Address string `json:"address" validate:"max=200"`
}

type createRequest struct {
	CompanyName string       `json:"companyName" validate:"max=200"`
	TaxID       string       `json:"rtn" validate:"max=32"`
	Color       string       `json:"color" validate:"omitempty,len=7,hexcolor"`
	Currency    string       `json:"currency" validate:"omitempty,oneof=HNL USD hnl usd"`
	Items       []createItem `json:"items" validate:"max=500,dive"`
	Notes       *string      `json:"notes" validate:"omitempty,max=2000"`
	Client      createClient `json:"clientInfo"`
}

type createResponse struct {
	ID       uuid.UUID `json:"id"`
	Location string    `json:"location"`
}

func newAPIInvoice(doc *invoice.Document) apiInvoice {
	return apiInvoice{Document: doc, Totals: doc.Totals()}
}

func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	docs, err := h.service.List(r.Context(), identity.UserID, invoice.ListFilter{
		Search: strings.TrimSpace(q.Get("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("api list invoices", slog.String("user_id", identity.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := apiList{Invoices: make([]apiInvoice, 0, len(docs))}
	for _, doc := range docs {
		out.Invoices = append(out.Invoices, newAPIInvoice(doc))
	}
	sum := invoice.Summarize(docs)
	out.Count, out.Totals = sum.Count, sum.Totals
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) apiGet(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	doc, err := h.service.Get(r.Context(), identity.UserID, id)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("api get invoice", slog.String("invoice_id", id.String()), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.applyIssuer(r.Context(), identity.UserID, doc)
	httpx.JSON(w, http.StatusOK, newAPIInvoice(doc))
}

func (h *Handler) apiCreate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, validationProblem(err))
		return
	}
	doc, err := req.document()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	module := "api:invoices:" + identity.UserID
	if key != "" && h.idempotency != nil {
		err := h.idempotency.CheckAndInsert(r.Context(), key, module)
		switch {
		case errors.Is(err, shared.ErrIdempotencyConflict):
			h.replayCreate(w, r, key, module)
			return
		case err != nil:
			h.logger.Error("claim idempotency key", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}

	id, err := h.service.Create(r.Context(), identity.UserID, doc)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if derr := h.idempotency.Delete(r.Context(), key, module); derr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", derr))
			}
		}
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("api create invoice", slog.String("user_id", identity.UserID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.Complete(r.Context(), key, module, id.String()); err != nil {
			h.logger.Warn("complete idempotency key", slog.Any("error", err))
		}
	}
	location := "/api/invoices/" + id.String()
	w.Header().Set("Location", location)
	httpx.JSON(w, http.StatusCreated, createResponse{ID: id, Location: location})
}

// replayCreate answers a retried create with the invoice of the first call.
func (h *Handler) replayCreate(w http.ResponseWriter, r *http.Request, key, module string) {
	resource, err := h.idempotency.Resource(r.Context(), key, module)
	if err != nil {
		h.logger.Error("lookup idempotency key", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if resource == "" {
		httpx.Problem(w, http.StatusConflict, "Request In Progress", "a request with this idempotency key is still being processed")
		return
	}
	id, err := uuid.Parse(resource)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	location := "/api/invoices/" + id.String()
	w.Header().Set("Location", location)
	httpx.JSON(w, http.StatusOK, createResponse{ID: id, Location: location})
}

// document builds the invoice through the document setters so API input
// obeys the same rules as the editor.
func (req createRequest) document() (*invoice.Document, error) {
	doc := invoice.NewDocument()
	doc.Items = nil
	if err := doc.SetCompanyName(req.CompanyName); err != nil {
		return nil, err
	}
	if err := doc.SetTaxID(req.TaxID); err != nil {
		return nil, err
	}
	if req.Color != "" {
		if err := doc.SetAccentColor(req.Color); err != nil {
			return nil, err
		}
	}
	if req.Currency != "" {
		if err := doc.SetCurrency(req.Currency); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		if err := doc.SetNotes(*req.Notes); err != nil {
			return nil, err
		}
	}
	if err := doc.SetClient(invoice.ClientInfo{Name: req.Client.Name, TaxID: req.Client.TaxID, Address: req.Client.Address}); err != nil {
		return nil, err
	}
	for _, it := range req.Items {
		item, err := doc.AddLineItem()
		if err != nil {
			return nil, err
		}
		if err := doc.UpdateLineItem(item.ID, invoice.FieldName, it.Name); err != nil {
			return nil, err
		}
		if err := doc.UpdateLineItem(item.ID, invoice.FieldPrice, it.Price.String()); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func validationProblem(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%w: %s failed %s", httpx.ErrValidation, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}
