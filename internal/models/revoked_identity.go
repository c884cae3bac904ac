package models

import "time"

// RevokedIdentity blocks a provider account whose local user was deleted from
// being provisioned again by a token issued before the deletion.
type RevokedIdentity struct {
	ExternalID string    `gorm:"primaryKey;size:64" json:"externalId"`
	Email      string    `gorm:"size:255" json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
}
