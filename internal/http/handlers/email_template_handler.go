package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/mail"
	"fenafar_admin/internal/models"
)

// TemplateDeliverer sends an already resolved template. *mail.Composer satisfies it.
type TemplateDeliverer interface {
	Deliver(ctx context.Context, tpl mail.Template, to, toName string, vars map[string]string) error
}

type emailTemplateInput struct {
	Name        string                   `json:"name" binding:"required,max=120"`
	Subject     string                   `json:"subject" binding:"required,max=255"`
	HTMLContent string                   `json:"htmlContent" binding:"required"`
	TextContent string                   `json:"textContent"`
	Type        models.EmailTemplateTipo `json:"type" binding:"required"`
	Variables   []string                 `json:"variables"`
	Active      *bool                    `json:"active"`
}

// variables falls back to the placeholders found in the content.
func (in emailTemplateInput) variables() []string {
	if len(in.Variables) > 0 {
		return in.Variables
	}
	return mail.Placeholders(in.Subject, in.HTMLContent, in.TextContent)
}

func loadTemplate(c *gin.Context, db *gorm.DB) (*models.EmailTemplate, bool) {
	var t models.EmailTemplate
	if err := db.First(&t, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "template")
		} else {
			fail(c, err)
		}
		return nil, false
	}
	return &t, true
}

func nameTaken(db *gorm.DB, name, exceptID string) (bool, error) {
	var n int64
	q := db.Model(&models.EmailTemplate{}).Where("lower(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func ListEmailTemplates(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, size := pageParams(c)
		q := db.Model(&models.EmailTemplate{})
		if typ := strings.ToUpper(c.Query("type")); typ != "" {
			q = q.Where("type = ?", typ)
		}
		if active, ok := boolQuery(c, "active"); ok {
			q = q.Where("active = ?", active)
		}
		if term := strings.TrimSpace(c.Query("q")); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("(lower(name) LIKE ? OR lower(subject) LIKE ?)", like, like)
		}
		var total int64
		if err := q.Count(&total).Error; err != nil {
			fail(c, err)
			return
		}
		var rows []models.EmailTemplate
		if err := paginate(q.Order("type ASC, name ASC"), page, size).Find(&rows).Error; err != nil {
			fail(c, err)
			return
		}
		listJSON(c, rows, total, page, size)
	}
}

// ListBuiltinTemplates exposes the compiled-in defaults used when no active
// row exists for a type.
func ListBuiltinTemplates() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": mail.Builtins()})
	}
}

func GetEmailTemplate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := loadTemplate(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"template": t, "variables": t.VariableNames()})
	}
}

func CreateEmailTemplate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in emailTemplateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		if !in.Type.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tipo de template inválido"})
			return
		}
		taken, err := nameTaken(db, in.Name, "")
		if err != nil {
			fail(c, err)
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "já existe um template com este nome"})
			return
		}

		t := models.EmailTemplate{
			Name:        strings.TrimSpace(in.Name),
			Subject:     in.Subject,
			HTMLContent: in.HTMLContent,
			TextContent: in.TextContent,
			Variables:   models.EncodeVariables(in.variables()),
			Type:        in.Type,
			Active:      true,
			CreatedByID: &u.ID,
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
			if in.Active != nil && !*in.Active {
				if err := tx.Model(&t).Update("active", false).Error; err != nil {
					return err
				}
				t.Active = false
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				Action:       "email_template.create",
				ResourceType: "email_template",
				ResourceID:   t.ID,
				Metadata:     map[string]any{"name": t.Name, "type": t.Type},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"template": t})
	}
}

func UpdateEmailTemplate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		t, ok := loadTemplate(c, db)
		if !ok {
			return
		}
		var in emailTemplateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		if !in.Type.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tipo de template inválido"})
			return
		}
		taken, err := nameTaken(db, in.Name, t.ID)
		if err != nil {
			fail(c, err)
			return
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{"error": "já existe um template com este nome"})
			return
		}
		updates := map[string]any{
			"name":         strings.TrimSpace(in.Name),
			"subject":      in.Subject,
			"html_content": in.HTMLContent,
			"text_content": in.TextContent,
			"variables":    models.EncodeVariables(in.variables()),
			"type":         in.Type,
		}
		if in.Active != nil {
			updates["active"] = *in.Active
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(t).Updates(updates).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				Action:       "email_template.update",
				ResourceType: "email_template",
				ResourceID:   t.ID,
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		if err := db.First(t, "id = ?", t.ID).Error; err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"template": t})
	}
}

func DeleteEmailTemplate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		t, ok := loadTemplate(c, db)
		if !ok {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.EmailTemplate{}, "id = ?", t.ID).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				Action:       "email_template.delete",
				ResourceType: "email_template",
				ResourceID:   t.ID,
				Metadata:     map[string]any{"name": t.Name},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// PreviewEmailTemplate renders a stored template with the given variables.
func PreviewEmailTemplate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, ok := loadTemplate(c, db)
		if !ok {
			return
		}
		var in struct {
			Variables map[string]string `json:"variables"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				badRequest(c, err)
				return
			}
		}
		out := mail.Apply(mail.FromModel(*t), in.Variables)
		c.JSON(http.StatusOK, gin.H{"subject": out.Subject, "html": out.HTML, "text": out.Text})
	}
}

// TestEmailTemplate sends a stored template to one address.
func TestEmailTemplate(db *gorm.DB, sender TemplateDeliverer) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		t, ok := loadTemplate(c, db)
		if !ok {
			return
		}
		var in struct {
			To        string            `json:"to" binding:"required,email"`
			Variables map[string]string `json:"variables"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		if err := sender.Deliver(c.Request.Context(), mail.FromModel(*t), in.To, "", in.Variables); err != nil {
			logger.FromContext(c.Request.Context()).Warn("Test e-mail failed", "template_id", t.ID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "falha no envio: " + err.Error()})
			return
		}
		_ = audit.Record(db, audit.Entry{
			Meta:         audit.MetaFrom(c),
			Actor:        &u,
			Action:       "email_template.test",
			ResourceType: "email_template",
			ResourceID:   t.ID,
			Metadata:     map[string]any{"to": in.To},
		})
		c.JSON(http.StatusOK, gin.H{"message": "e-mail de teste enviado"})
	}
}
