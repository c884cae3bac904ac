package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fenafar_admin/internal/models"
)

const TokenTTL = 24 * time.Hour

// Claims represents the JWT claims issued by the login endpoint.
type Claims struct {
	UserID      string      `json:"uid"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	SindicatoID string      `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for the user.
func IssueToken(secret string, u models.User, now time.Time) (string, error) {
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	if u.SindicatoID != nil {
		claims.SindicatoID = *u.SindicatoID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies a session token signed with secret.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}
