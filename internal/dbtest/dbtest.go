// Package dbtest opens a migrated in-memory database for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fenafar_admin/internal/db"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := db.Connect(ctx, "sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}
