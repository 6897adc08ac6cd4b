package recall

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// storeTimeout bounds every credential store call made by the session
// controller. The store has no deadline of its own.
const storeTimeout = 10 * time.Second

// Auther drives the session lifecycle: sign-in issues both tokens and
// persists the refresh token, refresh rotates the pair after checking the
// presented token against the single stored one, sign-out unsets it.
type Auther struct {
	provider IdentityProvider
	store    CredentialStore
	access   *TokenService
	refresh  *TokenService
	logger   Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, store CredentialStore, cfg Config) *Auther {
	logger := defLogger{}

	return &Auther{
		provider: provider,
		store:    store,
		access:   NewTokenService(ScopeAccess, []byte(cfg.GetAccessTokenSecret()), cfg.GetAccessTokenExpiration(), cfg.GetIssuer(), logger),
		refresh:  NewTokenService(ScopeRefresh, []byte(cfg.GetRefreshTokenSecret()), cfg.GetRefreshTokenExpiration(), cfg.GetIssuer(), logger),
		logger:   logger,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.access.logger = logger
		s.refresh.logger = logger
	}
	return s
}

// AccessTokens returns the access token service, for wiring the verifier gate.
func (s *Auther) AccessTokens() *TokenService {
	return s.access
}

// SignIn authenticates the identifier/password pair and starts a session.
// The returned user is sanitized.
func (s *Auther) SignIn(ctx context.Context, identifier, password string) (*TokenPair, *User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Info("SignIn rejected", "identifier", identifier, "error", err)
		return nil, nil, err
	}

	pair, err := s.issueAndPersist(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return pair, user.Sanitize(), nil
}

// Refresh validates a presented refresh token, enforces single-active-token
// semantics against the stored copy, and rotates the pair.
func (s *Auther) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, ErrMissingRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	claims, err := s.refresh.Validate(presented)
	if err != nil {
		s.logger.Info("Refresh token failed validation", "error", err)
		return nil, ErrInvalidRefreshToken
	}

	id, err := claims.UserUUID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.provider.FindIdentityByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	// A signed, unexpired token that is not the stored one means it was
	// rotated out and replayed. Treat it as a security event and force a
	// fresh sign-in.
	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		s.logger.Warn("Refresh token reuse detected", "user_id", user.ID.String())
		return nil, ErrRefreshTokenReused
	}

	return s.issueAndPersist(ctx, user.ID)
}

// SignOut unsets the stored refresh token. Signing out twice is a no-op the
// second time; there is nothing left to unset.
func (s *Auther) SignOut(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.ClearRefreshToken(ctx, userID); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear refresh token")
	}

	return nil
}

// SessionFromToken validates an access token and returns its claims.
func (s *Auther) SessionFromToken(token string) (*SessionClaims, error) {
	return s.access.Validate(token)
}

// IdentityFromClaims resolves validated claims to a sanitized user record.
func (s *Auther) IdentityFromClaims(ctx context.Context, claims *SessionClaims) (*User, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	id, err := claims.UserUUID()
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.provider.FindIdentityByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return user.Sanitize(), nil
}

// issueAndPersist re-fetches the user, mints both tokens, and overwrites the
// stored refresh token with a single-column write. Concurrent sign-in and
// refresh for the same user race on that column; last writer wins.
func (s *Auther) issueAndPersist(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	user, err := s.provider.FindIdentityByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate the tokens")
	}

	pair, err := IssuePair(s.access, s.refresh, NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist refresh token")
	}

	return pair, nil
}

var _ Authenticator = (*Auther)(nil)
