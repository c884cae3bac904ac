package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/models"
)

// ListAudit pages backwards through the trail with an id cursor. Union
// admins only see their own union's entries.
func ListAudit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}

		limit := 20
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		var afterID int64
		if cursorStr := c.Query("after_id"); cursorStr != "" {
			if parsed, err := strconv.ParseInt(cursorStr, 10, 64); err == nil && parsed > 0 {
				afterID = parsed
			}
		}

		search := strings.TrimSpace(c.Query("q"))

		query := tenant(db.Model(&models.AuditLog{}), u, "sindicato_id").Order("id DESC")
		if afterID > 0 {
			query = query.Where("id < ?", afterID)
		}
		if action := c.Query("action"); action != "" {
			query = query.Where("action = ?", action)
		}
		if rt := c.Query("resourceType"); rt != "" {
			query = query.Where("resource_type = ?", rt)
		}
		if search != "" {
			like := "%" + search + "%"
			query = query.Where("(initiator_name LIKE ? OR action LIKE ? OR resource_type LIKE ? OR ip LIKE ?)",
				like, like, like, like)
		}

		var logs []models.AuditLog
		if err := query.Limit(limit + 1).Find(&logs).Error; err != nil {
			fail(c, err)
			return
		}

		var nextCursor *int64
		if len(logs) > limit {
			next := logs[limit-1].ID
			logs = logs[:limit]
			nextCursor = &next
		}

		c.JSON(http.StatusOK, gin.H{
			"logs":        logs,
			"next_cursor": nextCursor,
		})
	}
}
