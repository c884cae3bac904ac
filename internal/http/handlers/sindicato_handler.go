package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/invite"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/rbac"
	"fenafar_admin/internal/validate"
)

type sindicatoInput struct {
	Name    string `json:"name" binding:"required,max=200"`
	CNPJ    string `json:"cnpj" binding:"omitempty,cnpj"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone" binding:"max=20"`
	Address string `json:"address" binding:"max=255"`
	City    string `json:"city" binding:"max=120"`
	State   string `json:"state" binding:"omitempty,uf"`
	ZipCode string `json:"zipCode"`
}

func (in sindicatoInput) fields() map[string]any {
	return map[string]any{
		"name":     strings.TrimSpace(in.Name),
		"email":    strings.ToLower(strings.TrimSpace(in.Email)),
		"phone":    strings.TrimSpace(in.Phone),
		"address":  strings.TrimSpace(in.Address),
		"city":     strings.TrimSpace(in.City),
		"state":    strings.ToUpper(strings.TrimSpace(in.State)),
		"zip_code": validate.Digits(in.ZipCode),
	}
}

// loadSindicato fetches a union the caller may see, answering 404 otherwise.
func loadSindicato(c *gin.Context, db *gorm.DB, u models.User) (*models.Sindicato, bool) {
	id := c.Param("id")
	if !rbac.CanAccessSindicato(u, id) {
		notFound(c, "sindicato")
		return nil, false
	}
	var s models.Sindicato
	if err := db.First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "sindicato")
		} else {
			fail(c, err)
		}
		return nil, false
	}
	return &s, true
}

func ListSindicatos(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		page, size := pageParams(c)
		q := tenant(db.Model(&models.Sindicato{}), u, "id")
		if term := strings.TrimSpace(c.Query("q")); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			cond := "(lower(name) LIKE ? OR lower(city) LIKE ?"
			args := []any{like, like}
			if d := validate.Digits(term); d != "" {
				cond += " OR cnpj LIKE ?"
				args = append(args, "%"+d+"%")
			}
			q = q.Where(cond+")", args...)
		}
		if status := strings.ToUpper(c.Query("status")); status != "" {
			q = q.Where("status = ?", status)
		}
		if active, ok := boolQuery(c, "active"); ok {
			q = q.Where("active = ?", active)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			fail(c, err)
			return
		}
		var rows []models.Sindicato
		if err := paginate(q.Order("name ASC"), page, size).Find(&rows).Error; err != nil {
			fail(c, err)
			return
		}
		listJSON(c, rows, total, page, size)
	}
}

func GetSindicato(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		s, ok := loadSindicato(c, db, u)
		if !ok {
			return
		}
		var members int64
		if err := db.Model(&models.User{}).Where("sindicato_id = ?", s.ID).Count(&members).Error; err != nil {
			fail(c, err)
			return
		}
		var admin *models.User
		if s.AdminID != nil {
			var a models.User
			err := db.First(&a, "id = ?", *s.AdminID).Error
			switch {
			case err == nil:
				admin = &a
			case !errors.Is(err, gorm.ErrRecordNotFound):
				fail(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"sindicato": s, "admin": admin, "memberCount": members})
	}
}

// CreateSindicato registers a union directly from the admin form. It starts
// APPROVED since a federation admin filled it in.
func CreateSindicato(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in sindicatoInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		cnpj := validate.Digits(in.CNPJ)
		if cnpj == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cnpj é obrigatório"})
			return
		}

		var existing int64
		if err := db.Model(&models.Sindicato{}).Where("cnpj = ?", cnpj).Count(&existing).Error; err != nil {
			fail(c, err)
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": invite.ErrCNPJInUse.Error()})
			return
		}

		now := time.Now()
		f := in.fields()
		s := models.Sindicato{
			Name:         f["name"].(string),
			CNPJ:         cnpj,
			Email:        f["email"].(string),
			Phone:        f["phone"].(string),
			Address:      f["address"].(string),
			City:         f["city"].(string),
			State:        f["state"].(string),
			ZipCode:      f["zip_code"].(string),
			Status:       models.SindicatoApproved,
			Active:       true,
			ReviewedAt:   &now,
			ReviewedByID: &u.ID,
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			slugValue, err := invite.UniqueSlug(tx, s.Name)
			if err != nil {
				return err
			}
			s.Slug = slugValue
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  &s.ID,
				Action:       "sindicato.create",
				ResourceType: "sindicato",
				ResourceID:   s.ID,
				Metadata:     map[string]any{"name": s.Name, "cnpj": s.CNPJ},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"sindicato": s})
	}
}

// UpdateSindicato edits contact data. Only federation admins may change the CNPJ.
func UpdateSindicato(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		s, ok := loadSindicato(c, db, u)
		if !ok {
			return
		}
		var in sindicatoInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		updates := in.fields()
		if cnpj := validate.Digits(in.CNPJ); cnpj != "" && cnpj != s.CNPJ {
			if u.Role != models.RoleFenafarAdmin {
				forbidden(c)
				return
			}
			updates["cnpj"] = cnpj
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(s).Updates(updates).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  &s.ID,
				Action:       "sindicato.update",
				ResourceType: "sindicato",
				ResourceID:   s.ID,
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		if err := db.First(s, "id = ?", s.ID).Error; err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sindicato": s})
	}
}

// notifyReview tells the union admin about the decision. Best effort.
func notifyReview(c *gin.Context, db *gorm.DB, mailer invite.Mailer, baseURL string, s *models.Sindicato) {
	if mailer == nil {
		return
	}
	to, name := s.Email, s.Name
	if s.AdminID != nil {
		var admin models.User
		if err := db.First(&admin, "id = ?", *s.AdminID).Error; err == nil {
			to, name = admin.Email, admin.Name
		}
	}
	if to == "" {
		return
	}
	typ := models.TemplateSindicatoAprovado
	if s.Status == models.SindicatoRejected {
		typ = models.TemplateSindicatoRejeitado
	}
	vars := map[string]string{
		"name":          name,
		"sindicatoName": s.Name,
		"reason":        s.RejectionReason,
		"loginUrl":      strings.TrimRight(baseURL, "/") + "/login",
	}
	if err := mailer.Send(c.Request.Context(), typ, to, name, vars); err != nil {
		logger.FromContext(c.Request.Context()).Warn("Review e-mail failed", "sindicato_id", s.ID, "error", err)
	}
}

func review(db *gorm.DB, mailer invite.Mailer, baseURL string, status models.SindicatoStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in struct {
			Reason string `json:"reason" binding:"max=2000"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				badRequest(c, err)
				return
			}
		}
		in.Reason = strings.TrimSpace(in.Reason)
		if status == models.SindicatoRejected && in.Reason == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "motivo da rejeição é obrigatório"})
			return
		}
		s, ok := loadSindicato(c, db, u)
		if !ok {
			return
		}
		if s.Status == status {
			c.JSON(http.StatusConflict, gin.H{"error": "sindicato já está " + strings.ToLower(string(status))})
			return
		}

		now := time.Now()
		updates := map[string]any{
			"status":           status,
			"rejection_reason": in.Reason,
			"reviewed_at":      now,
			"reviewed_by_id":   u.ID,
		}
		if status == models.SindicatoApproved {
			updates["rejection_reason"] = ""
		}
		action := "sindicato.approve"
		if status == models.SindicatoRejected {
			action = "sindicato.reject"
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(s).Updates(updates).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  &s.ID,
				Action:       action,
				ResourceType: "sindicato",
				ResourceID:   s.ID,
				Metadata:     map[string]any{"reason": in.Reason},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		if err := db.First(s, "id = ?", s.ID).Error; err != nil {
			fail(c, err)
			return
		}
		notifyReview(c, db, mailer, baseURL, s)
		c.JSON(http.StatusOK, gin.H{"sindicato": s})
	}
}

func ApproveSindicato(db *gorm.DB, mailer invite.Mailer, baseURL string) gin.HandlerFunc {
	return review(db, mailer, baseURL, models.SindicatoApproved)
}

func RejectSindicato(db *gorm.DB, mailer invite.Mailer, baseURL string) gin.HandlerFunc {
	return review(db, mailer, baseURL, models.SindicatoRejected)
}

// SetSindicatoActive toggles the union on or off.
func SetSindicatoActive(db *gorm.DB, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		s, ok := loadSindicato(c, db, u)
		if !ok {
			return
		}
		action := "sindicato.deactivate"
		if active {
			action = "sindicato.activate"
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(s).Update("active", active).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  &s.ID,
				Action:       action,
				ResourceType: "sindicato",
				ResourceID:   s.ID,
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		s.Active = active
		c.JSON(http.StatusOK, gin.H{"sindicato": s})
	}
}

// DeleteSindicato removes a union with no members or documents left.
func DeleteSindicato(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		s, ok := loadSindicato(c, db, u)
		if !ok {
			return
		}
		var members, docs int64
		if err := db.Model(&models.User{}).Where("sindicato_id = ?", s.ID).Count(&members).Error; err != nil {
			fail(c, err)
			return
		}
		if err := db.Model(&models.Documento{}).Where("sindicato_id = ?", s.ID).Count(&docs).Error; err != nil {
			fail(c, err)
			return
		}
		if members > 0 || docs > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "sindicato possui membros ou documentos", "members": members, "documents": docs})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("sindicato_id = ?", s.ID).Delete(&models.Convite{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(s).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				Action:       "sindicato.delete",
				ResourceType: "sindicato",
				ResourceID:   s.ID,
				Metadata:     map[string]any{"name": s.Name, "cnpj": s.CNPJ},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Stats feeds the dashboard cards, scoped to the caller's union.
func Stats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		count := func(model any, column string, where ...any) int64 {
			var n int64
			q := tenant(db.Model(model), u, column)
			if len(where) > 0 {
				q = q.Where(where[0], where[1:]...)
			}
			if err := q.Count(&n).Error; err != nil {
				logger.FromContext(c.Request.Context()).Warn("Stats query failed", "error", err)
			}
			return n
		}
		now := time.Now().UTC()
		c.JSON(http.StatusOK, gin.H{
			"sindicatos": gin.H{
				"total":    count(&models.Sindicato{}, "id"),
				"pending":  count(&models.Sindicato{}, "id", "status = ?", models.SindicatoPending),
				"approved": count(&models.Sindicato{}, "id", "status = ?", models.SindicatoApproved),
				"rejected": count(&models.Sindicato{}, "id", "status = ?", models.SindicatoRejected),
			},
			"members": gin.H{
				"total":  count(&models.User{}, "sindicato_id"),
				"active": count(&models.User{}, "sindicato_id", "active = ?", true),
			},
			"documents":      count(&models.Documento{}, "sindicato_id"),
			"pendingInvites": count(&models.Convite{}, "sindicato_id", "accepted = ? AND expires_at >= ?", false, now),
		})
	}
}
