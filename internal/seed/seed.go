package seed

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/config"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/mail"
	"fenafar_admin/internal/models"
)

// DemoCNPJ identifies the sample union created by a demo seed.
const DemoCNPJ = "11222333000181"

type Options struct {
	Admin config.SeedConfig
	Demo  bool
}

type Result struct {
	AdminCreated     bool
	TemplatesCreated int
	DemoCreated      bool
}

// FirstSetup is safe to run on every boot: it only inserts what is missing
// and never overwrites an existing password or an edited template.
func FirstSetup(ctx context.Context, db *gorm.DB, opts Options) (Result, error) {
	var res Result
	log := logger.FromContext(ctx)
	db = db.WithContext(ctx)

	// -------------------------
	// 1) Federation admin
	// -------------------------
	email := strings.ToLower(strings.TrimSpace(opts.Admin.AdminEmail))
	if email == "" {
		return res, fmt.Errorf("seed admin e-mail is empty")
	}
	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return res, err
	}
	if n == 0 {
		hash, err := auth.HashPassword(opts.Admin.AdminPassword)
		if err != nil {
			return res, fmt.Errorf("seed admin password: %w", err)
		}
		admin := models.User{
			Email:          email,
			Name:           "Administrador FENAFAR",
			Role:           models.RoleFenafarAdmin,
			Active:         true,
			EmailConfirmed: true,
			AuthProvider:   models.AuthProviderLocal,
			PasswordHash:   hash,
		}
		if err := db.Create(&admin).Error; err != nil {
			return res, err
		}
		res.AdminCreated = true
		log.Info("Seeded federation admin", "email", email)
	}

	// -------------------------
	// 2) Built-in e-mail templates
	// -------------------------
	for _, b := range mail.Builtins() {
		row := models.EmailTemplate{
			Name:        b.Name,
			Subject:     b.Subject,
			HTMLContent: b.HTML,
			TextContent: b.Text,
			Variables:   models.EncodeVariables(b.Variables),
			Type:        b.Type,
			Active:      true,
		}
		tx := db.Where("name = ?", b.Name).FirstOrCreate(&row)
		if tx.Error != nil {
			return res, fmt.Errorf("seed template %s: %w", b.Name, tx.Error)
		}
		res.TemplatesCreated += int(tx.RowsAffected)
	}

	// -------------------------
	// 3) Optional demo union
	// -------------------------
	if opts.Demo {
		demo := models.Sindicato{
			Name:   "Sindicato Demonstração",
			CNPJ:   DemoCNPJ,
			Slug:   "sindicato-demonstracao",
			Email:  "contato@demo.fenafar.org.br",
			City:   "Brasília",
			State:  "DF",
			Status: models.SindicatoApproved,
			Active: true,
		}
		tx := db.Where("cnpj = ?", DemoCNPJ).FirstOrCreate(&demo)
		if tx.Error != nil {
			return res, fmt.Errorf("seed demo union: %w", tx.Error)
		}
		res.DemoCreated = tx.RowsAffected > 0
	}

	log.Info("Seed OK", "admin", email, "templates_created", res.TemplatesCreated, "demo", res.DemoCreated)
	return res, nil
}
