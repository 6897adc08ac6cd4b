package recall

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenScope names the signing scope a token belongs to. Each scope has its
// own secret and expiry; a token signed under one scope never validates under
// another.
type TokenScope string

const (
	ScopeAccess  TokenScope = "access"
	ScopeRefresh TokenScope = "refresh"
	ScopeShare   TokenScope = "share"
)

// SessionClaims is the payload of access and refresh tokens: registered
// claims plus the user id.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the encoded user id, falling back to the subject.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserUUID parses the encoded user id.
func (c *SessionClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ShareClaims is the payload of a share token. It carries the username only:
// the public consumption path needs nothing else, and the narrow payload
// keeps a leaked share token useless for session forgery.
type ShareClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Expires returns the expiration time
func (c *ShareClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
