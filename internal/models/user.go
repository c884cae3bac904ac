package models

import "time"

type Role string

const (
	RoleFenafarAdmin   Role = "FENAFAR_ADMIN"
	RoleSindicatoAdmin Role = "SINDICATO_ADMIN"
	RoleMember         Role = "MEMBER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFenafarAdmin, RoleSindicatoAdmin, RoleMember:
		return true
	}
	return false
}

const (
	AuthProviderLocal    = "local"
	AuthProviderSupabase = "supabase"
)

type User struct {
	Base
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name           string     `gorm:"size:200;not null" json:"name"`
	CPF            *string    `gorm:"uniqueIndex;size:11" json:"cpf,omitempty"`
	Phone          string     `gorm:"size:20" json:"phone,omitempty"`
	CRF            string     `gorm:"size:30" json:"crf,omitempty"`
	Role           Role       `gorm:"size:20;not null;default:MEMBER;check:role IN ('FENAFAR_ADMIN','SINDICATO_ADMIN','MEMBER')" json:"role"`
	Active         bool       `gorm:"not null;default:true" json:"active"`
	EmailConfirmed bool       `gorm:"not null;default:false" json:"emailConfirmed"`
	SindicatoID    *string    `gorm:"size:36;index" json:"sindicatoId,omitempty"`
	AuthProvider   string     `gorm:"size:20;default:local" json:"authProvider"`
	ExternalID     *string    `gorm:"uniqueIndex;size:64" json:"-"`
	PasswordHash   string     `gorm:"size:255" json:"-"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`

	Sindicato *Sindicato `gorm:"foreignKey:SindicatoID;constraint:OnDelete:SET NULL" json:"sindicato,omitempty"`
}

// BelongsTo reports whether the user is attached to the given union.
func (u User) BelongsTo(sindicatoID string) bool {
	return u.SindicatoID != nil && *u.SindicatoID == sindicatoID
}
