// Command seed-demo creates demo owners with one property each and a year of
// sample expenses and budgets, then prints a bearer token per owner.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"homeledger/internal/auth"
	"homeledger/internal/backend"
	"homeledger/internal/cli"
	"homeledger/internal/config"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
)

const tokenTTL = 30 * 24 * time.Hour

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateStorage)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	ctx := context.Background()
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err)
		os.Exit(1)
	}
	defer result.Cleanup()

	s := &seeder{
		props:  result.Properties,
		ledger: ledger.NewService(result.Store, result.Properties, nil, logger),
		logger: logger,
	}

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret)
	}

	now := time.Now()
	for _, acct := range demoAccounts {
		prop, _, err := s.seedAccount(ctx, acct, now.Year(), int(now.Month()))
		if err != nil {
			logger.Error("Seeding failed", log.FieldError, err, log.FieldOwnerID, acct.OwnerID)
			os.Exit(1)
		}
		fmt.Printf("owner %d: property %d (%s, %s)\n", acct.OwnerID, prop.ID, prop.Address, prop.City)
		if verifier == nil {
			continue
		}
		token, err := verifier.Issue(acct.OwnerID, tokenTTL)
		if err != nil {
			logger.Error("Failed to issue demo token", log.FieldError, err)
			os.Exit(1)
		}
		fmt.Printf("  Authorization: Bearer %s\n", token)
	}
	if verifier == nil {
		logger.Warn("JWT_SECRET not set, no demo tokens printed")
	}
}
