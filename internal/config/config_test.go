package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should apply defaults when only the DSN is set", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/fenafar")
		t.Setenv("DB_DRIVER", "")
		t.Setenv("APP_PORT", "")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("INVITE_TTL_HOURS", "")
		t.Setenv("CORS_ORIGINS", "")

		cfg := Load()

		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "dev-secret-only", cfg.JWTSecret)
		assert.Equal(t, 7*24*time.Hour, cfg.InviteTTL)
		assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
		assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
		require.NoError(t, cfg.Validate())
	})

	t.Run("Should parse overrides from the environment", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "file::memory:")
		t.Setenv("DB_DRIVER", "SQLITE")
		t.Setenv("INVITE_TTL_HOURS", "48")
		t.Setenv("LOG_JSON", "true")
		t.Setenv("CORS_ORIGINS", "https://a.org, https://b.org")
		t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")

		cfg := Load()

		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, 48*time.Hour, cfg.InviteTTL)
		assert.True(t, cfg.LogJSON)
		assert.Equal(t, []string{"https://a.org", "https://b.org"}, cfg.CORSOrigins)
		assert.Equal(t, "https://proj.supabase.co", cfg.Supabase.URL)
	})
}

func TestValidate(t *testing.T) {
	base := Config{DBDriver: "postgres", DSN: "x", InviteTTL: time.Hour, Storage: StorageConfig{Driver: "local"}}

	t.Run("Should reject a missing DSN", func(t *testing.T) {
		cfg := base
		cfg.DSN = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should reject an unknown driver", func(t *testing.T) {
		cfg := base
		cfg.DBDriver = "oracle"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Should require supabase credentials for supabase storage", func(t *testing.T) {
		cfg := base
		cfg.Storage.Driver = "supabase"
		assert.Error(t, cfg.Validate())

		cfg.Supabase = SupabaseConfig{URL: "https://x.supabase.co", ServiceKey: "key"}
		assert.NoError(t, cfg.Validate())
	})
}
