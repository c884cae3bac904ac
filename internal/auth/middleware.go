package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
)

const (
	ctxClaims = "claims"
	ctxUser   = "user"
)

type Options struct {
	Secret         string
	ExternalSecret string // provider JWT secret; empty disables provider tokens
}

// JWT returns a Gin middleware that validates a bearer token from either
// the Authorization header or the "token" cookie, loads the local user and
// rejects inactive accounts. Provider tokens auto-provision a local user.
func JWT(db *gorm.DB, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.GetHeader("Authorization"))
		if tokenStr == "" {
			if cookie, err := c.Cookie("token"); err == nil {
				tokenStr = cookie
			}
		}
		tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
		if tokenStr == "" {
			reject(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var user models.User
		claims, err := ParseToken(opts.Secret, tokenStr)
		switch {
		case err == nil:
			if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
				reject(c, http.StatusUnauthorized, "user not found")
				return
			}
		case opts.ExternalSecret != "":
			ident, extErr := VerifyExternal(opts.ExternalSecret, tokenStr)
			if extErr != nil {
				reject(c, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			user, err = Provision(db.WithContext(c.Request.Context()), *ident)
			if errors.Is(err, ErrIdentityRevoked) || errors.Is(err, ErrEmailUnverified) {
				logger.FromContext(c.Request.Context()).Warn("Provider token refused", "external_id", ident.ID, "error", err)
				reject(c, http.StatusUnauthorized, err.Error())
				return
			}
			if err != nil {
				logger.FromContext(c.Request.Context()).Error("Failed to provision external user", "email", ident.Email, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
				return
			}
		default:
			reject(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if !user.Active {
			reject(c, http.StatusForbidden, "account deactivated")
			return
		}

		// claims always reflect the database, not what the token said
		cl := &Claims{UserID: user.ID, Email: user.Email, Role: user.Role}
		if user.SindicatoID != nil {
			cl.SindicatoID = *user.SindicatoID
		}
		c.Set(ctxClaims, cl)
		c.Set(ctxUser, user)
		c.Next()
	}
}

var (
	ErrIdentityRevoked = errors.New("provider account was removed")
	ErrEmailUnverified = errors.New("provider e-mail not verified")
)

// Provision finds the local row for a provider identity, creating an active
// MEMBER when none exists. An existing local account is only linked by e-mail
// when the provider has verified that e-mail.
func Provision(db *gorm.DB, ident ExternalIdentity) (models.User, error) {
	var user models.User
	err := db.Where("external_id = ?", ident.ID).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	var revoked int64
	if err := db.Model(&models.RevokedIdentity{}).Where("external_id = ?", ident.ID).Count(&revoked).Error; err != nil {
		return user, err
	}
	if revoked > 0 {
		return user, ErrIdentityRevoked
	}

	err = db.Where("email = ?", ident.Email).First(&user).Error
	switch {
	case err == nil:
		if !ident.EmailVerified {
			return models.User{}, ErrEmailUnverified
		}
		extID := ident.ID
		if err := db.Model(&user).Update("external_id", extID).Error; err != nil {
			return user, err
		}
		user.ExternalID = &extID
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return user, err
	}

	extID := ident.ID
	name := ident.Name
	if name == "" {
		name = strings.Split(ident.Email, "@")[0]
	}
	user = models.User{
		Email:          ident.Email,
		Name:           name,
		Role:           models.RoleMember,
		Active:         true,
		EmailConfirmed: ident.EmailVerified,
		AuthProvider:   models.AuthProviderSupabase,
		ExternalID:     &extID,
	}
	if err := db.Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

// CurrentUser returns the user loaded by JWT.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func CurrentClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*Claims)
	return cl, ok
}

// reject redirects browser navigations to the login page and answers JSON otherwise.
func reject(c *gin.Context, status int, msg string) {
	if c.Request.Method == http.MethodGet && strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Redirect(http.StatusSeeOther, "/login")
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
