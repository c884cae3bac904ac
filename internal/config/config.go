package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver  string
	DSN       string
	JWTSecret string
	AppPort   string
	BaseURL   string

	CORSOrigins []string
	LogLevel    string
	LogJSON     bool

	InviteTTL    time.Duration
	MaxUploadMB  int64
	ViewsGlob    string
	StaticDir    string
	DotEnvLoaded bool

	Supabase SupabaseConfig
	Storage  StorageConfig
	Email    EmailConfig
	Seed     SeedConfig
}

// SupabaseConfig points at the hosted auth service that mirrors user identities.
type SupabaseConfig struct {
	URL        string
	ServiceKey string
	JWTSecret  string
}

type StorageConfig struct {
	Driver   string
	Bucket   string
	LocalDir string
}

type EmailConfig struct {
	APIKey      string
	APIURL      string
	FromAddress string
	FromName    string
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	loaded := godotenv.Load() == nil

	cfg := Config{
		DBDriver:  strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DSN:       os.Getenv("DATABASE_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		AppPort:   getenv("APP_PORT", "8080"),

		CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogJSON:     getbool("LOG_JSON", false),

		InviteTTL:    time.Duration(getint("INVITE_TTL_HOURS", 7*24)) * time.Hour,
		MaxUploadMB:  int64(getint("MAX_UPLOAD_MB", 10)),
		ViewsGlob:    getenv("VIEWS_GLOB", "internal/ui/views/*.tmpl"),
		StaticDir:    getenv("STATIC_DIR", "internal/ui/static"),
		DotEnvLoaded: loaded,

		Supabase: SupabaseConfig{
			URL:        strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
			ServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
			JWTSecret:  os.Getenv("SUPABASE_JWT_SECRET"),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getenv("STORAGE_DRIVER", "local")),
			Bucket:   getenv("STORAGE_BUCKET", "documentos"),
			LocalDir: getenv("STORAGE_LOCAL_DIR", "./uploads"),
		},
		Email: EmailConfig{
			APIKey:      os.Getenv("EMAIL_API_KEY"),
			APIURL:      strings.TrimRight(getenv("EMAIL_API_URL", "https://api.brevo.com/v3"), "/"),
			FromAddress: getenv("EMAIL_FROM_ADDRESS", "nao-responda@fenafar.org.br"),
			FromName:    getenv("EMAIL_FROM_NAME", "FENAFAR"),
		},
		Seed: SeedConfig{
			AdminEmail:    getenv("SEED_ADMIN_EMAIL", "admin@fenafar.org.br"),
			AdminPassword: getenv("SEED_ADMIN_PASSWORD", "fenafar123"),
		},
	}

	cfg.BaseURL = strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:"+cfg.AppPort), "/")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-only"
	}

	return cfg
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DATABASE_URL not set in environment")
	}
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.Storage.Driver {
	case "local":
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("STORAGE_DRIVER=supabase requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.InviteTTL <= 0 {
		return fmt.Errorf("INVITE_TTL_HOURS must be positive")
	}
	return nil
}

// MaxUploadBytes is the document size limit enforced by the upload handler.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
