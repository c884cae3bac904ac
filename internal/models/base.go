package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the uuid primary key and timestamps shared by every table.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Sindicato{},
		&Documento{},
		&Convite{},
		&EmailTemplate{},
		&AuditLog{},
		&RevokedIdentity{},
	}
}
