package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SindicatoID   *string        `gorm:"size:36;index" json:"sindicatoId,omitempty"` // nil for federation-wide actions
	UserID        *string        `gorm:"size:36;index" json:"userId,omitempty"`      // nil for anonymous actions (invite acceptance)
	Action        string         `gorm:"size:200;not null" json:"action"`            // e.g. "convite.create", "sindicato.approve"
	ResourceType  string         `gorm:"size:100" json:"resourceType"`
	ResourceID    string         `gorm:"size:36;index" json:"resourceId"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	IP            string         `gorm:"size:64" json:"ip"`
	InitiatorName string         `gorm:"size:255" json:"initiatorName"`
	UserAgent     string         `gorm:"size:255" json:"userAgent"`
	CreatedAt     time.Time      `json:"createdAt"`
}
