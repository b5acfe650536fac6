// Package jwtpeek decodes JWT access tokens without verifying their
// signature. It reports what the issuing server claims to have granted,
// for display only. Never use it to make authorization decisions.
package jwtpeek

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the diagnostic cares about.
// Scope arrives either as the OAuth2-style space-delimited "scope" string
// or as a "scopes" array depending on the server.
type Claims struct {
	jwt.RegisteredClaims

	// Scope is the space-delimited form, e.g. "read write".
	Scope string `json:"scope,omitempty"`

	// Scopes is the array form some servers emit instead.
	Scopes []string `json:"scopes,omitempty"`
}

// Info is what Peek extracts from a token.
type Info struct {
	Subject   string
	Issuer    string
	Scopes    []string
	ExpiresAt time.Time // zero when the claim is absent
}

// Peek decodes token as a JWT without verifying the signature. ok is false
// when the token is not JWT-shaped; opaque tokens are common and not an
// error.
func Peek(token string) (Info, bool) {
	if strings.Count(token, ".") != 2 {
		return Info{}, false
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Info{}, false
	}

	info := Info{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
		Scopes:  claims.scopeList(),
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, true
}

func (c *Claims) scopeList() []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return strings.Fields(c.Scope)
}
