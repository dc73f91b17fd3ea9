package courier

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/lu-zhengda/courier/internal/domain"
)

// Claims are the fields Courier puts in client access tokens.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Scopes splits the space-separated scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// Expired reports whether the token's exp is at or before now. Tokens
// without exp never expire.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time)
}

// ParseClaims decodes the claims of a JWT without verifying its signature.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w: %w", domain.ErrParse, err)
	}
	return claims, nil
}

// ValidateSession checks that a session can be used to sign in.
func ValidateSession(s domain.Session, now time.Time) error {
	if s.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if s.AccessToken == "" && s.ClientKey == "" {
		return fmt.Errorf("an access token or client key is required")
	}
	if !s.HasJWT() {
		return nil
	}
	claims, err := ParseClaims(s.AccessToken)
	if err != nil {
		return err
	}
	if claims.Expired(now) {
		return fmt.Errorf("token expired at %s: %w", claims.ExpiresAt.Time.Format(time.RFC3339), domain.ErrSessionExpired)
	}
	return nil
}
