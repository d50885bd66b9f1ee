package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MaybeRunDev aplica las migraciones al arrancar cuando la app corre en development y AUTO_MIGRATE=true.
func MaybeRunDev(ctx context.Context, cfg *config.Config, log *logger.Logger, pool *pgxpool.Pool) error {
	if !cfg.App.IsDev() || !cfg.App.AutoMigrate {
		return nil
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	log.Info().Str("env", cfg.App.Env).Msg("aplicando migraciones goose (auto-run dev)")
	if err := Run(ctx, db, "up"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	log.Info().Msg("migraciones aplicadas")
	return nil
}
