package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/auth"
	"fenafar_admin/internal/invite"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/rbac"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// me returns the authenticated user or answers 401.
func me(c *gin.Context) (models.User, bool) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return u, ok
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(c.Query("pageSize"))
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

func paginate(q *gorm.DB, page, size int) *gorm.DB {
	return q.Offset((page - 1) * size).Limit(size)
}

func listJSON(c *gin.Context, data any, total int64, page, size int) {
	c.JSON(http.StatusOK, gin.H{"data": data, "total": total, "page": page, "pageSize": size})
}

// boolQuery parses ?active=true|false; ok is false when absent or malformed.
func boolQuery(c *gin.Context, key string) (v bool, ok bool) {
	raw := c.Query(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	return v, err == nil
}

// tenant restricts q to the caller's union when the caller is confined to one.
func tenant(q *gorm.DB, u models.User, column string) *gorm.DB {
	if sid, ok := rbac.TenantScope(u); ok {
		return q.Where(column+" = ?", sid)
	}
	return q
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " não encontrado"})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}

// fail maps service and gorm errors to status codes. Unknown errors are
// logged and reported as 500.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, invite.ErrNotFound), errors.Is(err, invite.ErrSindicatoNotFound):
		status = http.StatusNotFound
	case errors.Is(err, invite.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, invite.ErrAlreadyAccepted), errors.Is(err, invite.ErrPendingExists),
		errors.Is(err, invite.ErrEmailInUse), errors.Is(err, invite.ErrCNPJInUse), errors.Is(err, invite.ErrCPFInUse),
		errors.Is(err, gorm.ErrDuplicatedKey):
		status = http.StatusConflict
	case errors.Is(err, invite.ErrForbiddenRole):
		status = http.StatusForbidden
	case errors.Is(err, invite.ErrInvalid), errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "erro interno"})
		return
	}
	msg := err.Error()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		msg = "registro duplicado"
	}
	c.JSON(status, gin.H{"error": msg})
}
