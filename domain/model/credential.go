package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// HostCredential stores the YouTube OAuth credentials of one host.
// Token fields are never serialized to JSON.
type HostCredential struct {
	HostID        string     `json:"host_id"                  bson:"_id"`
	AccessToken   string     `json:"-"                        bson:"accessToken"`
	RefreshToken  string     `json:"-"                        bson:"refreshToken"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"     bson:"expiresAt,omitempty"`
	Scope         string     `json:"scope"                    bson:"scope"`
	TokenType     string     `json:"token_type"               bson:"tokenType"`
	LastRefreshed *time.Time `json:"last_refreshed,omitempty" bson:"lastRefreshed,omitempty"`
	CreatedAt     time.Time  `json:"created_at"               bson:"createdAt"`
	UpdatedAt     time.Time  `json:"updated_at"               bson:"updatedAt"`
}

// ExpiresWithin reports whether the access token is expired at now+buffer.
// A credential without an expiry is treated as expired.
func (c *HostCredential) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.After(now.Add(buffer))
}

// TokenGrant is what the token authority hands back on exchange or refresh.
// RefreshToken is empty when the authority did not rotate it.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Scope        string
	TokenType    string
}

// HostClaims are carried by the host session token.
type HostClaims struct {
	HostID string `json:"host_id"`
	Name   string `json:"name,omitempty"`
	jwt.StandardClaims
}
