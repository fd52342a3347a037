package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
	"github.com/facturapro/facturapro/internal/platform/httpx"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/jobs"
)

// InvoiceSource loads saved invoices for an owner.
type InvoiceSource interface {
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*invoice.Document, error)
}

// Locker obtains a cluster-wide lock.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Invoices InvoiceSource
	Exporter *Exporter
	Store    *FileStore
	Locker   Locker
	LockTTL  time.Duration
	Logger   *slog.Logger
	// Issuers fills the issuer RTN, which invoices do not store.
	Issuers invoice.IssuerSource
}

// Job pre-renders saved invoices coming from the queue.
type Job struct {
	invoices InvoiceSource
	exporter *Exporter
	store    *FileStore
	locker   Locker
	lockTTL  time.Duration
	logger   *slog.Logger
	issuers  invoice.IssuerSource
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{invoices: cfg.Invoices, exporter: cfg.Exporter, store: cfg.Store, locker: cfg.Locker, lockTTL: ttl, logger: logger, issuers: cfg.Issuers}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.invoices == nil || j.exporter == nil || j.store == nil {
		return fmt.Errorf("invoice export job not configured")
	}
	var payload jobs.InvoiceExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.InvoiceID == uuid.Nil || payload.OwnerID == "" {
		return asynq.SkipRetry
	}
	if j.store.Exists(payload.InvoiceID) {
		return nil
	}

	if j.locker != nil {
		lock, err := j.locker.Obtain(ctx, shared.ExportLockKey(payload.InvoiceID), j.lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			// Another worker is rendering this invoice.
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			_ = lock.Release(context.WithoutCancel(ctx))
		}()
	}

	doc, err := j.invoices.Get(ctx, payload.OwnerID, payload.InvoiceID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrValidation) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
	if j.issuers != nil {
		issuer, err := j.issuers.Issuer(ctx, payload.OwnerID)
		if err != nil {
			j.logger.Warn("resolve issuer", slog.String("invoice_id", payload.InvoiceID.String()), slog.Any("error", err))
		} else {
			doc.ApplyIssuer(issuer)
		}
	}
	file, err := j.exporter.Export(ctx, InvoiceKey(payload.InvoiceID), doc, sections.DefaultLayout())
	if err != nil {
		return err
	}
	path, err := j.store.Save(payload.InvoiceID, file.Data)
	if err != nil {
		return err
	}
	j.logger.Info("invoice pdf ready", slog.String("invoice_id", payload.InvoiceID.String()), slog.String("file", path))
	return nil
}

// SweepJob deletes stored PDFs older than the requested age.
type SweepJob struct {
	store  *FileStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSweepJob constructs a SweepJob.
func NewSweepJob(store *FileStore, logger *slog.Logger) *SweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{store: store, logger: logger, now: time.Now}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (s *SweepJob) Handle(_ context.Context, task *asynq.Task) error {
	var payload jobs.ExportSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.MaxAgeHours <= 0 {
		return asynq.SkipRetry
	}
	cutoff := s.now().Add(-time.Duration(payload.MaxAgeHours) * time.Hour)
	removed, err := s.store.Sweep(cutoff)
	if err != nil {
		return err
	}
	s.logger.Info("stored invoice pdfs swept", slog.Int("removed", removed))
	return nil
}
