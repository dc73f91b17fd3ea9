package domain

import (
	"strings"
	"time"
)

// Session identifies the signed-in user and the credentials used to reach
// the Courier APIs on their behalf.
type Session struct {
	UserID      string
	AccessToken string
	ClientKey   string
	TenantID    string
	CreatedAt   time.Time
}

func (s *Session) IsSignedIn() bool {
	return s != nil && s.UserID != "" && (s.AccessToken != "" || s.ClientKey != "")
}

// HasJWT reports whether the access token looks like a JWT (three dot-separated segments).
func (s *Session) HasJWT() bool {
	return s != nil && strings.Count(s.AccessToken, ".") == 2
}
