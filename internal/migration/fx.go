package migration

import (
	"context"

	"github.com/smallbiznis/clanbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, cfg config.Config, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := Apply(ctx, conn, cfg.DBType); err != nil {
					return err
				}
				log.Info("schema up to date", zap.String("type", cfg.DBType))
				return nil
			},
		})
	}),
)
