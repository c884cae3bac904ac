package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fenafar_admin/internal/models"
	"fenafar_admin/internal/rbac"
)

type roleView struct {
	Role        models.Role `json:"role"`
	Permissions []string    `json:"permissions"`
}

// ListRoles exposes the fixed role matrix so clients can build menus and
// role pickers without hard-coding it.
func ListRoles() gin.HandlerFunc {
	return func(c *gin.Context) {
		chk := rbac.Checker{}
		roles := []models.Role{models.RoleFenafarAdmin, models.RoleSindicatoAdmin, models.RoleMember}
		out := make([]roleView, 0, len(roles))
		for _, r := range roles {
			out = append(out, roleView{Role: r, Permissions: chk.Permissions(r)})
		}
		c.JSON(http.StatusOK, gin.H{"roles": out})
	}
}
