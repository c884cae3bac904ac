package models

import "time"

type SindicatoStatus string

const (
	SindicatoPending  SindicatoStatus = "PENDING"
	SindicatoApproved SindicatoStatus = "APPROVED"
	SindicatoRejected SindicatoStatus = "REJECTED"
)

// Sindicato is a member union, the tenant every other row hangs off.
type Sindicato struct {
	Base
	Name            string          `gorm:"size:200;not null" json:"name"`
	CNPJ            string          `gorm:"uniqueIndex;size:14;not null" json:"cnpj"`
	Slug            string          `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	Email           string          `gorm:"size:255" json:"email,omitempty"`
	Phone           string          `gorm:"size:20" json:"phone,omitempty"`
	Address         string          `gorm:"size:255" json:"address,omitempty"`
	City            string          `gorm:"size:120" json:"city,omitempty"`
	State           string          `gorm:"size:2" json:"state,omitempty"`
	ZipCode         string          `gorm:"size:8" json:"zipCode,omitempty"`
	Status          SindicatoStatus `gorm:"size:16;not null;default:PENDING;index;check:status IN ('PENDING','APPROVED','REJECTED')" json:"status"`
	RejectionReason string          `gorm:"type:text" json:"rejectionReason,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
	ReviewedByID    *string         `gorm:"size:36" json:"reviewedById,omitempty"`
	Active          bool            `gorm:"not null;default:true" json:"active"`
	AdminID         *string         `gorm:"size:36;index" json:"adminId,omitempty"` // users.sindicato_id already points back here, no FK
}
