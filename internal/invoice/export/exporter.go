package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/sections"
)

// Scale is the rasterization factor used for print sharpness.
const Scale = 2

// ContentTypePDF is the MIME type of exported files.
const ContentTypePDF = "application/pdf"

// ErrRender marks every export failure.
var ErrRender = errors.New("export: render failed")

// Export stages reported by RenderError.
const (
	StageLayout    = "layout"
	StageRasterize = "rasterize"
	StageAssemble  = "assemble"
)

// RenderError reports which export stage failed.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("export: %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{ErrRender, e.Err}
}

// InvoiceKey is the export key of a saved invoice, shared by the worker and
// the download handler so concurrent renders of one invoice collapse.
func InvoiceKey(id fmt.Stringer) string {
	return "invoice:" + id.String()
}

// File is a finished download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Observer records export outcomes.
type Observer interface {
	ObserveExport(result string, elapsed time.Duration)
}

// Exporter produces PDF files from documents. At most one export per key
// runs at a time; concurrent callers with the same key share its result.
type Exporter struct {
	raster   Rasterizer
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
	group    singleflight.Group
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithObserver records outcomes, typically into Prometheus.
func WithObserver(o Observer) Option {
	return func(e *Exporter) { e.observer = o }
}

// WithTimeout bounds a single export.
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) { e.timeout = d }
}

// NewExporter builds an Exporter around raster.
func NewExporter(raster Rasterizer, logger *slog.Logger, opts ...Option) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Exporter{raster: raster, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders doc with layout into a PDF. It works on a snapshot: doc
// and layout are never modified, and nothing is persisted on failure.
func (e *Exporter) Export(ctx context.Context, key string, doc *invoice.Document, layout *sections.Layout) (File, error) {
	if e == nil || e.raster == nil {
		return File{}, &RenderError{Stage: StageRasterize, Err: errors.New("exporter not initialized")}
	}
	snapshot := doc.Clone()
	order := layout.Clone()

	ch := e.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so a cancelled caller does not
		// fail the others sharing this flight.
		runCtx := context.WithoutCancel(ctx)
		if e.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, e.timeout)
			defer cancel()
		}
		return e.render(runCtx, key, snapshot, order)
	})

	select {
	case <-ctx.Done():
		return File{}, &RenderError{Stage: StageRasterize, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return File{}, res.Err
		}
		return res.Val.(File), nil
	}
}

func (e *Exporter) render(ctx context.Context, key string, doc *invoice.Document, layout *sections.Layout) (file File, err error) {
	started := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
			var rerr *RenderError
			stage := ""
			if errors.As(err, &rerr) {
				stage = rerr.Stage
			}
			e.logger.Error("invoice export failed",
				slog.String("document", key),
				slog.String("stage", stage),
				slog.Any("error", err))
		}
		if e.observer != nil {
			e.observer.ObserveExport(result, time.Since(started))
		}
	}()

	l, err := BuildLayout(doc, layout.EnabledInOrder())
	if err != nil {
		return File{}, &RenderError{Stage: StageLayout, Err: err}
	}
	if err := l.CheckSize(Scale); err != nil {
		return File{}, &RenderError{Stage: StageRasterize, Err: err}
	}
	img, err := e.raster.Rasterize(ctx, l, Scale)
	if err != nil {
		return File{}, &RenderError{Stage: StageRasterize, Err: err}
	}
	data, err := AssemblePDF(img)
	if err != nil {
		return File{}, &RenderError{Stage: StageAssemble, Err: err}
	}
	e.logger.Info("invoice exported",
		slog.String("document", key),
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", time.Since(started)))
	return File{Name: Filename(doc.CompanyName), ContentType: ContentTypePDF, Data: data}, nil
}
