package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"murmur/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog records one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// migrationLedger reads and writes migration_logs. Each script runs in the same
// transaction as its ledger row, so a failed script leaves no record behind.
type migrationLedger struct {
	db *gorm.DB
}

func (l migrationLedger) ensure(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}
	return nil
}

func (l migrationLedger) applied(ctx context.Context) ([]int, error) {
	if !l.db.WithContext(ctx).Migrator().HasTable(&MigrationLog{}) {
		return []int{}, nil
	}
	var versions []int
	if err := l.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	return versions, nil
}

func (l migrationLedger) apply(ctx context.Context, m Migration) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return err
		}
		return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
	})
	if err != nil {
		return fmt.Errorf("apply migration %s: %w", m.String(), err)
	}
	middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	return nil
}

func (l migrationLedger) revert(ctx context.Context, m Migration) error {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return err
		}
		return tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return fmt.Errorf("roll back migration %s: %w", m.String(), err)
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}

// RunMigrations applies every embedded migration that is not yet in migration_logs.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return migrateUp(ctx, db, GetMigrations())
}

// RollbackMigration reverts one applied migration by version number.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return migrateDown(ctx, db, GetMigrations(), version)
}

func migrateUp(ctx context.Context, db *gorm.DB, registered []Migration) error {
	ledger := migrationLedger{db: db}
	if err := ledger.ensure(ctx); err != nil {
		return err
	}
	applied, err := ledger.applied(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, registered); err != nil {
		return err
	}

	pending := pendingMigrations(applied, registered)
	if len(pending) == 0 {
		middleware.Logger.Debug("Schema up to date", slog.Int("applied", len(applied)))
		return nil
	}
	for _, m := range pending {
		if err := ledger.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, registered []Migration, version int) error {
	idx := slices.IndexFunc(registered, func(m Migration) bool { return m.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}

	ledger := migrationLedger{db: db}
	applied, err := ledger.applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}
	return ledger.revert(ctx, registered[idx])
}

// pendingMigrations keeps the registered order.
func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}

// validateAppliedVersions refuses a database that ran migrations this binary does not know.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []int
	for _, version := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version }) {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf(
		"migration_logs contains unknown versions not present in code: %s (reset the development database to rebuild)",
		strings.Join(parts, ", "),
	)
}
