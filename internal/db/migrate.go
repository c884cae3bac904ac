package db

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
)

// postgresStatements are applied after AutoMigrate on Postgres only.
var postgresStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (lower(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_email_templates_name_lower ON email_templates (lower(name))`,
	`CREATE INDEX IF NOT EXISTS idx_convites_pending ON convites (lower(email), expires_at) WHERE accepted = false`,
	`CREATE INDEX IF NOT EXISTS idx_documentos_sindicato_created ON documentos (sindicato_id, created_at DESC)`,
}

// Migrate creates or updates every table, plus the Postgres-only indexes.
func Migrate(ctx context.Context, gdb *gorm.DB) error {
	if err := gdb.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if gdb.Dialector.Name() == "postgres" {
		sqlDB, err := gdb.DB()
		if err != nil {
			return fmt.Errorf("get sql.DB: %w", err)
		}
		if err := ApplyPostgres(ctx, sqlDB); err != nil {
			return err
		}
	}

	logger.FromContext(ctx).Info("Schema migrated", "tables", len(models.All()))
	return nil
}

// ApplyPostgres runs the raw index statements inside one transaction.
func ApplyPostgres(ctx context.Context, sqlDB *sql.DB) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	for _, stmt := range postgresStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}
