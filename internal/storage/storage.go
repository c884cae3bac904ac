// Package storage keeps uploaded document files in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"fenafar_admin/internal/config"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrNoSignedURL = errors.New("store does not issue signed urls")
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the store selected by STORAGE_DRIVER.
func New(cfg config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "supabase":
		return NewSupabase(cfg.Supabase, cfg.Storage.Bucket), nil
	case "local", "":
		return NewLocal(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// DocumentKey builds sindicatos/{sindicatoID}/{uuid}-{slug}.{ext} from an
// uploaded file name.
func DocumentKey(sindicatoID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := slug.Make(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)))
	if base == "" {
		base = "arquivo"
	}
	if len(base) > 80 {
		base = base[:80]
	}
	return fmt.Sprintf("sindicatos/%s/%s-%s%s", sindicatoID, uuid.NewString(), base, ext)
}
