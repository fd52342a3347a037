package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/facturapro/facturapro/internal/invoice/export"
	"github.com/facturapro/facturapro/internal/observability"
	"github.com/facturapro/facturapro/report"
)

// NewExporter builds the PDF exporter for the configured rasterizer backend.
func NewExporter(cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*export.Exporter, error) {
	var (
		raster export.Rasterizer
		err    error
	)
	switch cfg.ExportRasterizer {
	case RasterizerGotenberg:
		client := report.NewClient(cfg.GotenbergURL, &http.Client{Timeout: cfg.ExportTimeout})
		raster, err = export.NewScreenshotRasterizer(client)
	case RasterizerCanvas, "":
		raster, err = export.NewCanvasRasterizer()
	default:
		return nil, fmt.Errorf("unknown export rasterizer %q", cfg.ExportRasterizer)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s rasterizer: %w", cfg.ExportRasterizer, err)
	}
	opts := []export.Option{export.WithTimeout(cfg.ExportTimeout)}
	if metrics != nil {
		opts = append(opts, export.WithObserver(metrics))
	}
	return export.NewExporter(raster, logger, opts...), nil
}
