package database

import (
	"context"
	"fmt"
	"log/slog"

	"murmur/internal/config"
	"murmur/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan says which schema steps run at startup.
type SchemaPlan struct {
	Mode           string
	RunSQL         bool
	RunAutoMigrate bool
}

// SchemaStatus is a SchemaPlan plus what the database has already applied.
type SchemaStatus struct {
	SchemaPlan
	Environment string
	Applied     []int
	Pending     []Migration
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment.
// Hybrid runs the SQL migrations everywhere and AutoMigrate only outside
// production and staging; auto mode is refused there unless destructive
// changes are explicitly allowed.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: cfg.DBSchemaMode}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if cfg.IsProdLike() && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAutoMigrate = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAutoMigrate = !cfg.IsProdLike()
	default:
		return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// ApplySchema brings the users, follows, posts and post_likes tables up to date.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.RunAutoMigrate {
		if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan for cfg and, when SQL migrations are in play,
// which embedded migrations are still pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{SchemaPlan: plan, Environment: cfg.Env}
	if !plan.RunSQL {
		return status, nil
	}

	applied, err := migrationLedger{db: db}.applied(ctx)
	if err != nil {
		return nil, err
	}
	status.Applied = applied
	status.Pending = pendingMigrations(applied, GetMigrations())
	return status, nil
}
