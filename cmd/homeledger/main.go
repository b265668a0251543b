package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"homeledger/internal/amqp"
	"homeledger/internal/auth"
	"homeledger/internal/backend"
	"homeledger/internal/cli"
	"homeledger/internal/config"
	apphttp "homeledger/internal/http"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
	"homeledger/internal/middleware/security"
	"homeledger/internal/report"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Events are optional: without a broker the ledger simply does not publish.
	var publisher ledger.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange)
		}
	}

	extractor, err := security.NewIPExtractor()
	if err != nil {
		logger.Error("Failed to configure client IP extraction", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), apphttp.Options{
		Ledger:             ledger.NewService(result.Store, result.Properties, publisher, logger),
		Reports:            report.NewService(result.Store, result.Properties, logger),
		Verifier:           auth.NewVerifier(cfg.JWTSecret),
		Ready:              result.Store.Ping,
		Logger:             logger,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ClientIP:           extractor.ClientIP,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting homeledger server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
