// Package audit writes the append-only trail of administrative actions.
package audit

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fenafar_admin/internal/models"
)

// Meta is the request origin stored with each entry.
type Meta struct {
	IP        string
	UserAgent string
}

func MetaFrom(c *gin.Context) Meta {
	ua := c.GetHeader("User-Agent")
	if len(ua) > 255 {
		ua = ua[:255]
	}
	return Meta{IP: c.ClientIP(), UserAgent: ua}
}

type Entry struct {
	Meta
	Actor        *models.User // nil for anonymous actions
	SindicatoID  *string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]any
}

// Record inserts the entry using db, which may be an open transaction.
func Record(db *gorm.DB, e Entry) error {
	row := models.AuditLog{
		SindicatoID:  e.SindicatoID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IP:           e.IP,
		UserAgent:    e.UserAgent,
		CreatedAt:    time.Now(),
	}
	if e.Actor != nil {
		id := e.Actor.ID
		row.UserID = &id
		row.InitiatorName = e.Actor.Name
		if row.SindicatoID == nil {
			row.SindicatoID = e.Actor.SindicatoID
		}
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		row.Metadata = datatypes.JSON(raw)
	}
	return db.Create(&row).Error
}
