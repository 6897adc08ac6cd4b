package recall

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	ProfilePicture() string
}

// TokenPair is the result of sign-in or refresh: both session tokens,
// created together.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Authenticator drives the session lifecycle: issue on sign-in, rotate on
// refresh, destroy on sign-out.
type Authenticator interface {
	SignIn(ctx context.Context, identifier, password string) (*TokenPair, *User, error)
	Refresh(ctx context.Context, presented string) (*TokenPair, error)
	SignOut(ctx context.Context, userID uuid.UUID) error
	SessionFromToken(token string) (*SessionClaims, error)
	IdentityFromClaims(ctx context.Context, claims *SessionClaims) (*User, error)
}

// Config holds auth options. All token scopes carry their own secret; the
// implementation must keep the three secrets independent.
type Config interface {
	GetAccessTokenSecret() string
	GetAccessTokenExpiration() time.Duration
	GetRefreshTokenSecret() string
	GetRefreshTokenExpiration() time.Duration
	GetShareTokenSecret() string
	GetShareTokenExpiration() time.Duration
	GetIssuer() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetCookieSecure() bool
}

// CredentialStore is the persistence the session core needs: identity lookup
// plus single-column refresh token writes that bypass full-record validation.
type CredentialStore interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

// IdentityProvider verifies credentials against a store
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (*User, error)
	FindIdentityByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// SignInPayload is what the session controller needs from an inbound sign-in
type SignInPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] RECALL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] RECALL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] RECALL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] RECALL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
