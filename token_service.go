package recall

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService signs and validates session tokens for a single scope. The
// access and refresh services are two instances with independent secrets and
// expirations; share tokens have their own service, see share.go.
type TokenService struct {
	scope      TokenScope
	signingKey []byte
	expiration time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a TokenService for one scope
func NewTokenService(scope TokenScope, signingKey []byte, expiration time.Duration, issuer string, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		scope:      scope,
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
		logger:     logger,
	}
}

// Scope returns the scope this service signs for
func (ts *TokenService) Scope() TokenScope {
	return ts.scope
}

// Expiration returns the configured token lifetime
func (ts *TokenService) Expiration() time.Duration {
	return ts.expiration
}

// Generate creates a signed token encoding the identity's user id. The
// payload shape is deterministic; the expiry claim is not.
func (ts *TokenService) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
		UID: identity.ID(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary session claims using the scope's signing key.
func (ts *TokenService) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string against this scope's secret,
// returning structured claims. Expired tokens surface as ErrTokenExpired so
// the HTTP layer can keep the expired sub-kind distinct from generic faults.
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// IssuePair creates an access and a refresh token for the identity, both at
// once. Callers re-fetch the identity from the store before issuing so we
// never mint tokens for a record that was deleted concurrently.
func IssuePair(access, refresh *TokenService, identity Identity) (*TokenPair, error) {
	if access == nil || refresh == nil {
		return nil, errors.New("token services are required", errors.CategoryBadInput)
	}

	accessToken, err := access.Generate(identity)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate access token")
	}

	refreshToken, err := refresh.Generate(identity)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
