package migration

import (
	"github.com/smallbiznis/menuya/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(migrateOnStart),
)

func migrateOnStart(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.MigrateOnStart {
		log.Info("migrations skipped")
		return nil
	}
	res, err := Run(conn)
	if err != nil {
		return err
	}
	log.Info("schema ready",
		zap.String("strategy", res.Strategy),
		zap.Uint("from_version", res.From),
		zap.Uint("to_version", res.To),
	)
	return nil
}

// Run migrates the schema: versioned SQL on postgres, AutoMigrate elsewhere.
func Run(conn *gorm.DB) (Result, error) {
	if conn.Dialector.Name() != "postgres" {
		return Result{Strategy: "automigrate"}, AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return Result{}, err
	}
	return RunMigrations(sqlDB)
}
