package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/rbac"
)

// ProfileHandler renders the profile page for the currently authenticated user.
func ProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := auth.CurrentUser(c)
		if !ok {
			// JWT middleware should have redirected, but ensure fallback.
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}

		var user models.User
		if err := db.Preload("Sindicato").First(&user, "id = ?", u.ID).Error; err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}

		c.HTML(http.StatusOK, "profile.tmpl", gin.H{
			"title":       "Meu perfil",
			"User":        user,
			"Permissions": rbac.Checker{}.Permissions(user.Role),
		})
	}
}

// Page renders a server-side view for the signed-in user.
func Page(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := auth.CurrentUser(c)
		c.HTML(http.StatusOK, name, gin.H{
			"title":       title,
			"User":        u,
			"Permissions": rbac.Checker{}.Permissions(u.Role),
		})
	}
}
