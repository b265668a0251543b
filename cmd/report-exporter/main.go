package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"homeledger/internal/amqp"
	"homeledger/internal/backend"
	"homeledger/internal/cli"
	"homeledger/internal/config"
	"homeledger/internal/log"
	"homeledger/internal/report"
	"homeledger/internal/sheets"
	gsheet "homeledger/internal/sheets/google"
	memsheet "homeledger/internal/sheets/memory"
	"homeledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateExporter)

	logger.Info("Starting report-exporter", "backend", cfg.DataBackend, "dry_run", cfg.ExportDryRun)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	}()

	var writer sheets.SummaryWriter
	if cfg.ExportDryRun {
		writer = memsheet.New()
		logger.Info("Dry run: summaries are kept in memory")
	} else {
		client, err := gsheet.NewFromCredentials(context.Background(), cfg.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewReportExporter(report.NewService(result.Store, result.Properties, logger), writer, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Backfill() {
		g.Go(func() error {
			err := exporter.Backfill(gctx, cfg.BackfillOwnerID, cfg.BackfillPropertyID, cfg.BackfillYear)
			if err != nil && !errors.Is(err, context.Canceled) {
				// a failed backfill is not fatal; live events keep flowing
				logger.Error("Backfill failed", log.FieldError, err, log.FieldPropertyID, cfg.BackfillPropertyID)
			}
			return nil
		})
	}

	g.Go(func() error {
		return amqpClient.ConsumeWithRetry(gctx, exporter.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Report exporter stopped", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report exporter stopped gracefully")
}
