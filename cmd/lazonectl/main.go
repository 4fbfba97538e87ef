package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lazone/lazone-api/internal/config"
	"github.com/lazone/lazone-api/internal/domain/entitlement"
	"github.com/lazone/lazone-api/internal/domain/manualpayment"
	"github.com/lazone/lazone-api/internal/pkg/database"
	"github.com/lazone/lazone-api/internal/pkg/logger"
)

var databaseURL string

var rootCmd = &cobra.Command{
	Use:   "lazonectl",
	Short: "LaZone administration tool",
	Long:  `Operate the LaZone credit ledger and the mobile-money review queue from a terminal`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Config{Level: "info", Environment: "development"})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL DSN (defaults to DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(paymentsCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*sqlx.DB, *config.Config, error) {
	cfg := config.Load()
	dsn := cfg.DatabaseURL
	if databaseURL != "" {
		dsn = databaseURL
	}

	db, err := database.NewPostgres(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, cfg, nil
}

// summaryInvalidator drops cached entitlement summaries after admin actions.
// An unreachable Redis only costs staleness until the cache TTL.
func summaryInvalidator(cfg *config.Config) (manualpayment.CacheInvalidator, func()) {
	client, err := database.NewRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, entitlement cache will expire on its own")
		return noopInvalidator{}, func() {}
	}
	return entitlement.NewRedisCache(client, cfg.EntitlementCacheTTL), func() { database.CloseRedis(client) }
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, uuid.UUID) {}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
