package invoice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturapro/facturapro/internal/money"
	"github.com/facturapro/facturapro/internal/platform/httpx"
)

// ExportEnqueuer schedules background rendering of a saved invoice.
type ExportEnqueuer interface {
	EnqueueInvoiceExport(ctx context.Context, invoiceID uuid.UUID, ownerID string) error
}

// Service scopes every persistence call to an explicit owner.
type Service struct {
	repo     Repository
	enqueuer ExportEnqueuer
	logger   *slog.Logger
}

// NewService builds a Service. enqueuer may be nil.
func NewService(repo Repository, enqueuer ExportEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, enqueuer: enqueuer, logger: logger}
}

// Create persists a snapshot of doc for owner and returns the assigned id.
// The caller's document is not modified.
func (s *Service) Create(ctx context.Context, ownerID string, doc *Document) (uuid.UUID, error) {
	if ownerID == "" {
		return uuid.Nil, httpx.ErrUnauthorized
	}
	snapshot := doc.Clone()
	if err := snapshot.Validate(); err != nil {
		return uuid.Nil, err
	}
	rec := ToRecord(ownerID, snapshot)

	var id uuid.UUID
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, _, err = repo.Create(ctx, rec)
		return err
	})
	if err != nil {
		return uuid.Nil, &PersistenceError{Op: "create", Err: err}
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueInvoiceExport(ctx, id, ownerID); err != nil {
			s.logger.Warn("enqueue invoice export", slog.String("invoice_id", id.String()), slog.Any("error", err))
		}
	}
	return id, nil
}

// Get loads invoice id. Invoices of other owners are reported as not found.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Document, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	if rec.OwnerID != ownerID {
		return nil, httpx.ErrNotFound
	}
	return s.hydrate(rec)
}

// List returns the owner's invoices, newest first.
func (s *Service) List(ctx context.Context, ownerID string, filter ListFilter) ([]*Document, error) {
	recs, err := s.repo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	docs := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := s.hydrate(rec)
		if err != nil {
			s.logger.Warn("skip unreadable invoice", slog.String("invoice_id", rec.ID.String()), slog.Any("error", err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Service) hydrate(rec Record) (*Document, error) {
	doc, reconciled, err := FromRecord(rec)
	if err != nil {
		return nil, err
	}
	if !reconciled {
		s.logger.Warn("stored totals disagree with line items, using recomputed totals",
			slog.String("invoice_id", rec.ID.String()),
			slog.String("stored_total", rec.Totals.Total.String()),
			slog.String("computed_total", doc.Totals().Total.String()))
	}
	return doc, nil
}

// Summary aggregates a list of invoices for the dashboard.
type Summary struct {
	Count  int
	Totals map[money.Currency]decimal.Decimal
}

// Summarize totals the invoices per currency. Amounts in different
// currencies are never added together.
func Summarize(docs []*Document) Summary {
	sum := Summary{Count: len(docs), Totals: make(map[money.Currency]decimal.Decimal)}
	for _, d := range docs {
		sum.Totals[d.Currency] = sum.Totals[d.Currency].Add(d.Totals().Total)
	}
	return sum
}
