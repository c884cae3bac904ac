package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/identity"
	"fenafar_admin/internal/invite"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/validate"
)

// loadMember fetches a user the caller may manage, answering 404 otherwise.
func loadMember(c *gin.Context, db *gorm.DB, u models.User) (*models.User, bool) {
	var m models.User
	q := tenant(db.Model(&models.User{}), u, "sindicato_id")
	if err := q.Preload("Sindicato").First(&m, "users.id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "membro")
		} else {
			fail(c, err)
		}
		return nil, false
	}
	return &m, true
}

// ListMembers returns users visible to the caller, filtered by q, sindicatoId,
// role and active.
func ListMembers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		page, size := pageParams(c)
		q := tenant(db.Model(&models.User{}), u, "sindicato_id")
		if sid := c.Query("sindicatoId"); sid != "" {
			q = q.Where("sindicato_id = ?", sid)
		}
		if role := strings.ToUpper(c.Query("role")); role != "" {
			q = q.Where("role = ?", role)
		}
		if active, ok := boolQuery(c, "active"); ok {
			q = q.Where("active = ?", active)
		}
		if term := strings.TrimSpace(c.Query("q")); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			cond := "(lower(name) LIKE ? OR lower(email) LIKE ?"
			args := []any{like, like}
			if d := validate.Digits(term); d != "" {
				cond += " OR cpf LIKE ?"
				args = append(args, "%"+d+"%")
			}
			q = q.Where(cond+")", args...)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			fail(c, err)
			return
		}
		var users []models.User
		if err := paginate(q.Preload("Sindicato").Order("name ASC"), page, size).Find(&users).Error; err != nil {
			fail(c, err)
			return
		}
		listJSON(c, users, total, page, size)
	}
}

func GetMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		m, ok := loadMember(c, db, u)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"member": m})
	}
}

type memberInput struct {
	Email       string      `json:"email" binding:"required,email"`
	Name        string      `json:"name" binding:"required,max=200"`
	Password    string      `json:"password" binding:"required"`
	CPF         string      `json:"cpf" binding:"omitempty,cpf"`
	Phone       string      `json:"phone" binding:"max=20"`
	CRF         string      `json:"crf" binding:"max=30"`
	Role        models.Role `json:"role"`
	SindicatoID string      `json:"sindicatoId"`
}

// CreateMember registers a user directly, without an invitation.
func CreateMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in memberInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		if in.Role == "" {
			in.Role = models.RoleMember
		}
		if !in.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "perfil inválido"})
			return
		}
		if u.Role != models.RoleFenafarAdmin {
			if in.Role != models.RoleMember || u.SindicatoID == nil {
				forbidden(c)
				return
			}
			in.SindicatoID = *u.SindicatoID
		}
		if in.Role != models.RoleFenafarAdmin {
			if in.SindicatoID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sindicatoId é obrigatório"})
				return
			}
			var n int64
			db.Model(&models.Sindicato{}).Where("id = ?", in.SindicatoID).Count(&n)
			if n == 0 {
				notFound(c, "sindicato")
				return
			}
		}

		email := strings.ToLower(strings.TrimSpace(in.Email))
		cpf := validate.Digits(in.CPF)
		var existing int64
		if err := db.Model(&models.User{}).Where("lower(email) = ?", email).Count(&existing).Error; err != nil {
			fail(c, err)
			return
		}
		if existing > 0 {
			fail(c, invite.ErrEmailInUse)
			return
		}
		if cpf != "" {
			db.Model(&models.User{}).Where("cpf = ?", cpf).Count(&existing)
			if existing > 0 {
				fail(c, invite.ErrCPFInUse)
				return
			}
		}

		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			fail(c, err)
			return
		}
		m := models.User{
			Email:          email,
			Name:           strings.TrimSpace(in.Name),
			Phone:          strings.TrimSpace(in.Phone),
			CRF:            strings.TrimSpace(in.CRF),
			Role:           in.Role,
			Active:         true,
			EmailConfirmed: true,
			AuthProvider:   models.AuthProviderLocal,
			PasswordHash:   hash,
		}
		if cpf != "" {
			m.CPF = &cpf
		}
		if in.SindicatoID != "" && in.Role != models.RoleFenafarAdmin {
			sid := in.SindicatoID
			m.SindicatoID = &sid
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  m.SindicatoID,
				Action:       "member.create",
				ResourceType: "user",
				ResourceID:   m.ID,
				Metadata:     map[string]any{"email": m.Email, "role": m.Role},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"member": m})
	}
}

// UpdateMember edits profile fields. Role and union moves are for
// federation admins only.
func UpdateMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		m, ok := loadMember(c, db, u)
		if !ok {
			return
		}
		var in struct {
			Name        string      `json:"name" binding:"required,max=200"`
			CPF         string      `json:"cpf" binding:"omitempty,cpf"`
			Phone       string      `json:"phone" binding:"max=20"`
			CRF         string      `json:"crf" binding:"max=30"`
			Role        models.Role `json:"role"`
			SindicatoID *string     `json:"sindicatoId"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		updates := map[string]any{
			"name":  strings.TrimSpace(in.Name),
			"phone": strings.TrimSpace(in.Phone),
			"crf":   strings.TrimSpace(in.CRF),
		}
		if cpf := validate.Digits(in.CPF); cpf != "" {
			updates["cpf"] = cpf
		}
		if in.Role != "" && in.Role != m.Role {
			if u.Role != models.RoleFenafarAdmin || !in.Role.Valid() {
				forbidden(c)
				return
			}
			updates["role"] = in.Role
		}
		if in.SindicatoID != nil && !m.BelongsTo(*in.SindicatoID) {
			if u.Role != models.RoleFenafarAdmin {
				forbidden(c)
				return
			}
			if *in.SindicatoID == "" {
				updates["sindicato_id"] = nil
			} else {
				updates["sindicato_id"] = *in.SindicatoID
			}
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", m.ID).Updates(updates).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  m.SindicatoID,
				Action:       "member.update",
				ResourceType: "user",
				ResourceID:   m.ID,
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		if err := db.Preload("Sindicato").First(m, "id = ?", m.ID).Error; err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"member": m})
	}
}

// guardTarget stops callers from locking themselves out and union admins
// from touching other admins.
func guardTarget(c *gin.Context, u models.User, m *models.User) bool {
	if m.ID == u.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "não é possível alterar a própria conta"})
		return false
	}
	if u.Role != models.RoleFenafarAdmin && m.Role != models.RoleMember {
		forbidden(c)
		return false
	}
	return true
}

func setMemberActive(db *gorm.DB, active bool) gin.HandlerFunc {
	action := "member.deactivate"
	if active {
		action = "member.activate"
	}
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		m, ok := loadMember(c, db, u)
		if !ok || !guardTarget(c, u, m) {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.User{}).Where("id = ?", m.ID).Update("active", active).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  m.SindicatoID,
				Action:       action,
				ResourceType: "user",
				ResourceID:   m.ID,
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": action, "id": m.ID, "active": active})
	}
}

func ActivateMember(db *gorm.DB) gin.HandlerFunc   { return setMemberActive(db, true) }
func DeactivateMember(db *gorm.DB) gin.HandlerFunc { return setMemberActive(db, false) }

// DeleteMember removes the account; documents keep their union but lose the
// member link. A mirrored provider account is revoked locally and then removed
// at the provider.
func DeleteMember(db *gorm.DB, idp identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		m, ok := loadMember(c, db, u)
		if !ok || !guardTarget(c, u, m) {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Documento{}).Where("member_id = ?", m.ID).Update("member_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Sindicato{}).Where("admin_id = ?", m.ID).Update("admin_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.User{}, "id = ?", m.ID).Error; err != nil {
				return err
			}
			if m.ExternalID != nil {
				if err := tx.Create(&models.RevokedIdentity{ExternalID: *m.ExternalID, Email: m.Email}).Error; err != nil {
					return err
				}
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  m.SindicatoID,
				Action:       "member.delete",
				ResourceType: "user",
				ResourceID:   m.ID,
				Metadata:     map[string]any{"email": m.Email},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		if m.ExternalID != nil {
			if err := idp.DeleteUser(c.Request.Context(), *m.ExternalID); err != nil && !errors.Is(err, identity.ErrDisabled) {
				logger.FromContext(c.Request.Context()).Warn("Provider account removal failed", "user_id", m.ID, "external_id", *m.ExternalID, "error", err)
			}
		}
		c.Status(http.StatusNoContent)
	}
}
