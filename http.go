package recall

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/recallhq/recall/middleware/jwtware"
)

// Cookie names the HTTP layer writes. The access cookie name doubles as the
// middleware's cookie lookup target.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
)

// Response status markers for the wire envelope. Every JSON body carries one.
const (
	StatusSuccess     = "success"
	StatusClientError = "client_error"
	StatusServerError = "server_error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondSuccess writes a success envelope with the given HTTP status.
func RespondSuccess(ctx router.Context, httpStatus int, message string, data any) error {
	return ctx.JSON(httpStatus, Response{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// RespondError maps an error to the envelope. Rich errors carry their own
// HTTP status in Code; anything else is a 500.
func RespondError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	httpStatus := richErr.Code
	if httpStatus < http.StatusBadRequest {
		httpStatus = http.StatusInternalServerError
	}

	status := StatusServerError
	if httpStatus < http.StatusInternalServerError {
		status = StatusClientError
	}

	return ctx.JSON(httpStatus, Response{
		Status:  status,
		Message: richErr.Message,
	})
}

// RouteAuthenticator glues the session lifecycle to HTTP: cookies on the way
// out, the verification gate on the way in.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute returns the middleware gating routes behind a valid access
// token. Token lookup order comes from config; the default checks the
// Authorization header, then the accessToken cookie. On success the sanitized
// user record rides the context alongside the claims, so a token for a
// deleted account never reaches a handler.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: NewSessionTokenValidator(a.auth),
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if session, ok := claims.(*SessionClaims); ok {
				return WithClaimsContext(c, session)
			}
			return c
		},
		SuccessHandler: func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, cfg.GetContextKey())
			if !ok {
				return errorHandler(ctx, ErrTokenMalformed)
			}

			user, err := a.auth.IdentityFromClaims(ctx.Context(), claims)
			if err != nil {
				return errorHandler(ctx, err)
			}

			ctx.Locals(LocalsUserKey, user)
			ctx.SetContext(WithContext(ctx.Context(), user))
			return ctx.Next()
		},
	})
}

// SignIn authenticates the payload and starts a session, setting both token
// cookies on the response.
func (a *RouteAuthenticator) SignIn(ctx router.Context, payload SignInPayload) (*TokenPair, *User, error) {
	pair, user, err := a.auth.SignIn(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("SignIn error", "error", err)
		return nil, nil, err
	}

	a.SetSessionCookies(ctx, pair)
	return pair, user, nil
}

// Refresh rotates the session using the refresh token from the refreshToken
// cookie, falling back to the given value when the cookie is absent.
func (a *RouteAuthenticator) Refresh(ctx router.Context, fallback string) (*TokenPair, error) {
	presented := ctx.Cookies(CookieRefreshToken, fallback)

	pair, err := a.auth.Refresh(ctx.Context(), presented)
	if err != nil {
		a.Logger.Error("Refresh error", "error", err)
		return nil, err
	}

	a.SetSessionCookies(ctx, pair)
	return pair, nil
}

// SignOut destroys the session and expires both cookies. Safe to call with a
// session that is already gone.
func (a *RouteAuthenticator) SignOut(ctx router.Context, claims *SessionClaims) error {
	defer func() {
		a.cookieDel(ctx, CookieAccessToken)
		a.cookieDel(ctx, CookieRefreshToken)
	}()

	if claims == nil {
		return nil
	}

	id, err := claims.UserUUID()
	if err != nil {
		return nil
	}

	return a.auth.SignOut(ctx.Context(), id)
}

// MakeClientRouteAuthErrorHandler normalizes gate failures into the envelope.
// Expired access tokens keep their dedicated status so clients know to
// refresh instead of re-authenticating.
func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid access token").
				WithCode(errors.CodeBadRequest)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// SetSessionCookies writes both token cookies with lifetimes matching their
// tokens.
func (a *RouteAuthenticator) SetSessionCookies(ctx router.Context, pair *TokenPair) {
	if pair == nil {
		return
	}
	a.setCookieToken(ctx, CookieAccessToken, pair.AccessToken, a.cfg.GetAccessTokenExpiration())
	a.setCookieToken(ctx, CookieRefreshToken, pair.RefreshToken, a.cfg.GetRefreshTokenExpiration())
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return RespondError(c, richErr)
}
