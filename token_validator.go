package recall

import "github.com/recallhq/recall/middleware/jwtware"

// SessionTokenValidator adapts an Authenticator to the middleware's
// TokenValidator interface.
type SessionTokenValidator struct {
	auth Authenticator
}

func NewSessionTokenValidator(auth Authenticator) SessionTokenValidator {
	return SessionTokenValidator{auth: auth}
}

// Validate satisfies the jwtware.TokenValidator interface.
func (v SessionTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.auth.SessionFromToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
