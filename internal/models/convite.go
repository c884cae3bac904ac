package models

import "time"

type ConviteStatus string

const (
	ConvitePending  ConviteStatus = "pending"
	ConviteAccepted ConviteStatus = "accepted"
	ConviteExpired  ConviteStatus = "expired"
)

// Convite is an e-mail invitation. Its ID doubles as the acceptance token.
type Convite struct {
	Base
	Email         string     `gorm:"size:255;not null;index" json:"email"`
	Name          string     `gorm:"size:200" json:"name,omitempty"`
	Role          Role       `gorm:"size:20;not null" json:"role"`
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expiresAt"`
	Accepted      bool       `gorm:"not null;default:false" json:"accepted"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	CreatedByID   string     `gorm:"size:36;not null" json:"createdById"`
	SindicatoID   *string    `gorm:"size:36;index" json:"sindicatoId,omitempty"`
	SindicatoName string     `gorm:"size:200" json:"sindicatoName,omitempty"`
	SindicatoCNPJ string     `gorm:"size:14;index" json:"sindicatoCnpj,omitempty"`

	CreatedBy *User      `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Sindicato *Sindicato `gorm:"foreignKey:SindicatoID;constraint:OnDelete:CASCADE" json:"sindicato,omitempty"`
}

// StatusAt derives the lifecycle state. Expiry wins over acceptance.
func (c Convite) StatusAt(now time.Time) ConviteStatus {
	switch {
	case now.After(c.ExpiresAt):
		return ConviteExpired
	case c.Accepted:
		return ConviteAccepted
	default:
		return ConvitePending
	}
}
