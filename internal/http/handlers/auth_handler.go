package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/rbac"
)

// LoginHandler authenticates with e-mail and password and returns a JWT,
// also set as an HttpOnly cookie for the server-rendered pages.
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}

		var user models.User
		email := strings.ToLower(strings.TrimSpace(input.Email))
		if err := db.Where("lower(email) = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "e-mail ou senha inválidos"})
			return
		}
		if !auth.CheckPassword(user.PasswordHash, input.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "e-mail ou senha inválidos"})
			return
		}
		if !user.Active {
			c.JSON(http.StatusForbidden, gin.H{"error": "conta desativada"})
			return
		}

		now := time.Now()
		tokenString, err := auth.IssueToken(jwtSecret, user, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
			return
		}
		if err := db.Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
			logger.FromContext(c.Request.Context()).Warn("Failed to record login", "user_id", user.ID, "error", err)
		}
		_ = audit.Record(db, audit.Entry{
			Meta:         audit.MetaFrom(c),
			Actor:        &user,
			Action:       "auth.login",
			ResourceType: "user",
			ResourceID:   user.ID,
		})

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("token", tokenString, int(auth.TokenTTL.Seconds()), "/", "", c.Request.TLS != nil, true)

		c.JSON(http.StatusOK, gin.H{
			"token": tokenString,
			"user":  user,
		})
	}
}

// LogoutHandler clears the session cookie and sends the browser to /login.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie("token", "", -1, "/", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusSeeOther, "/login")
	}
}

// MeHandler returns the current user, its union and its permissions.
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	chk := rbac.Checker{}
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		if err := db.Preload("Sindicato").First(&u, "id = ?", u.ID).Error; err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":        u,
			"permissions": chk.Permissions(u.Role),
		})
	}
}

func UpdateMe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in struct {
			Name  string `json:"name" binding:"required,max=200"`
			Phone string `json:"phone" binding:"max=20"`
			CRF   string `json:"crf" binding:"max=30"`
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
		if err := db.Model(&u).Updates(updates).Error; err != nil {
			fail(c, err)
			return
		}
		if err := db.First(&u, "id = ?", u.ID).Error; err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

// ChangeMyPassword requires the current password for local accounts.
func ChangeMyPassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		var in struct {
			Current string `json:"currentPassword"`
			New     string `json:"newPassword" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		if u.PasswordHash != "" && !auth.CheckPassword(u.PasswordHash, in.Current) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "senha atual incorreta"})
			return
		}
		hash, err := auth.HashPassword(in.New)
		if err != nil {
			fail(c, err)
			return
		}
		if err := db.Model(&u).Update("password_hash", hash).Error; err != nil {
			fail(c, err)
			return
		}
		_ = audit.Record(db, audit.Entry{
			Meta:         audit.MetaFrom(c),
			Actor:        &u,
			Action:       "user.change_password",
			ResourceType: "user",
			ResourceID:   u.ID,
		})
		c.JSON(http.StatusOK, gin.H{"message": "senha alterada"})
	}
}
