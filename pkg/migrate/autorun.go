package migrate

import (
	"context"
	"fmt"

	"github.com/pasabuy/pasabuy-backend/pkg/config"
	"github.com/pasabuy/pasabuy-backend/pkg/db"
	"github.com/pasabuy/pasabuy-backend/pkg/db/models"
	"github.com/pasabuy/pasabuy-backend/pkg/logger"
)

// MaybeRunDev brings a dev database up to date when PASABUY_AUTO_MIGRATE is
// set. SQLite files get their schema from the gorm models since the goose
// SQL is Postgres-only.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := client.DB().AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	logg.Info(ctx, "applying embedded migrations")
	if err := Run(ctx, sqlDB, DefaultDir, "up", logWriter{ctx: ctx, logg: logg}); err != nil {
		return err
	}
	return nil
}

// logWriter forwards goose progress lines into the structured log.
type logWriter struct {
	ctx  context.Context
	logg *logger.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logg.Info(w.ctx, string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	for len(p) > 0 && (p[len(p)-1] == '\n' || p[len(p)-1] == '\r') {
		p = p[:len(p)-1]
	}
	return p
}
