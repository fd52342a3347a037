package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/facturapro/facturapro/cmd/facturactl/cli"
	"github.com/facturapro/facturapro/internal/invoice/export"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	app := cli.NewApp(os.Stdout, os.Stderr, func() (cli.Exporter, error) {
		raster, err := export.NewCanvasRasterizer()
		if err != nil {
			return nil, err
		}
		return export.NewExporter(raster, logger), nil
	})
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error("facturactl", slog.Any("error", err))
		os.Exit(1)
	}
}
