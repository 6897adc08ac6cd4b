package recall

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound   = "identity_not_found"
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenMalformed     = "token_malformed"
	TextCodeRefreshMissing     = "refresh_token_missing"
	TextCodeRefreshInvalid     = "refresh_token_invalid"
	TextCodeRefreshReused      = "refresh_token_reused"
	TextCodeShareInvalid       = "share_token_invalid"
	TextCodeDuplicateIdentity  = "identity_exists"
)

// ErrIdentityNotFound is returned when no user matches the given identifier.
var ErrIdentityNotFound = errors.New("no user with the given username or email exists", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when the provided password does
// not match the stored hash.
var ErrMismatchedHashAndPassword = errors.New("provided password is incorrect", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is the expired-token sub-kind. It maps to its own HTTP
// status so clients can distinguish "refresh me" from "you are broken".
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(http.StatusRequestTimeout)

// ErrTokenMalformed covers bad signatures, wrong signing methods, and
// undecodable claims.
var ErrTokenMalformed = errors.New("invalid access token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeBadRequest)

// ErrMissingRefreshToken is returned when refresh is called with no token in
// cookie or body.
var ErrMissingRefreshToken = errors.New("invalid request", errors.CategoryBadInput).
	WithTextCode(TextCodeRefreshMissing).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRefreshToken covers refresh tokens that fail signature or expiry
// checks, or that decode to a user that no longer exists.
var ErrInvalidRefreshToken = errors.New("invalid request", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshInvalid).
	WithCode(errors.CodeBadRequest)

// ErrRefreshTokenReused is returned when the presented refresh token does not
// equal the single stored one. A previously rotated-out token was replayed;
// the client must start a fresh session.
var ErrRefreshTokenReused = errors.New("token expired, please sign in again", errors.CategoryAuth).
	WithTextCode(TextCodeRefreshReused).
	WithCode(errors.CodeBadRequest)

// ErrInvalidShareToken is returned when a public share token is tampered,
// expired, or resolves to no user.
var ErrInvalidShareToken = errors.New("invalid share link", errors.CategoryAuth).
	WithTextCode(TextCodeShareInvalid).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateIdentity is returned on signup when the username or email is
// already taken.
var ErrDuplicateIdentity = errors.New("user with the provided username or email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is the error for empty password input
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens, including errors coming
// from the jwt library before we wrap them.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed-token error messages
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
