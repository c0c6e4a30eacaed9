package identity

import (
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the app displays or acts on.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ParseClaims decodes an access token without verifying its signature.
func ParseClaims(accessToken string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// ExpiresAt returns the exp claim of an access token.
func ExpiresAt(accessToken string) (time.Time, bool) {
	claims, err := ParseClaims(accessToken)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// UserFromToken builds a display user from the sub and email claims, or nil when unreadable.
func UserFromToken(accessToken string) *models.User {
	claims, err := ParseClaims(accessToken)
	if err != nil || claims.Subject == "" {
		return nil
	}
	return &models.User{ID: claims.Subject, Email: claims.Email, Role: claims.Role}
}
