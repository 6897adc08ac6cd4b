package recall

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// HTTPAuthenticator is the surface the controllers need from the HTTP glue.
type HTTPAuthenticator interface {
	SignIn(ctx router.Context, payload SignInPayload) (*TokenPair, *User, error)
	Refresh(ctx router.Context, fallback string) (*TokenPair, error)
	SignOut(ctx router.Context, claims *SessionClaims) error
	SetSessionCookies(ctx router.Context, pair *TokenPair)
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error
}

// RegisterAuthRoutes mounts the session endpoints under /user.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Post("/user/signup", controller.SignUp).SetName("user.signup")
	app.Post("/user/signin", controller.SignIn).SetName("user.signin")
	app.Post("/user/refresh-tokens", controller.Refresh).SetName("user.refresh")
	app.Post("/user/signout", protected(controller.SignOut)).SetName("user.signout")
	app.Get("/user", protected(controller.Me)).SetName("user.me")
}

type AuthController struct {
	Logger       Logger
	Repo         RepositoryManager
	Auther       HTTPAuthenticator
	Config       Config
	ErrorHandler func(c router.Context, err error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: RespondError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

func WithAuthControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAuthControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithAuthControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

// SignUpRequest payload
type SignUpRequest struct {
	Username       string `form:"username" json:"username"`
	Email          string `form:"email" json:"email"`
	Password       string `form:"password" json:"password"`
	ProfilePicture string `form:"profilePicture" json:"profilePicture"`
}

// Validate will run validation rules against the normalized payload
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, UsernameRules()...),
		validation.Field(&r.Email, EmailRules()...),
		validation.Field(&r.Password, PasswordRules()...),
	)
}

func (a *AuthController) SignUp(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("SignUp parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	payload.Username = NormalizeUsername(payload.Username)
	payload.Email = NormalizeEmail(payload.Email)

	if err := payload.Validate(); err != nil {
		a.Logger.Error("SignUp validate payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid signup data").
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"fields": FormatValidationErrorToMap(err)}))
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user := &User{
		Username:       payload.Username,
		Email:          payload.Email,
		PasswordHash:   hash,
		ProfilePicture: payload.ProfilePicture,
	}

	created, err := a.Repo.Users().Register(ctx.Context(), user)
	if err != nil {
		a.Logger.Error("SignUp register", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return RespondSuccess(ctx, http.StatusOK, "You are signed up", map[string]any{
		"user": created.Sanitize(),
	})
}

// SignInRequest payload. Either username or email identifies the account.
type SignInRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r SignInRequest) GetIdentifier() string {
	if r.Username != "" {
		return NormalizeUsername(r.Username)
	}
	return NormalizeEmail(r.Email)
}

// GetPassword will return the password
func (r SignInRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) SignIn(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("SignIn parse payload", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid signin data").
			WithCode(errors.CodeBadRequest))
	}

	if payload.GetIdentifier() == "" {
		return a.ErrorHandler(ctx, errors.New("username or email is required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest))
	}

	pair, user, err := a.Auther.SignIn(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return RespondSuccess(ctx, http.StatusOK, "You are signed in", map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         user,
	})
}

// RefreshRequest carries the refresh token when it is not in a cookie.
type RefreshRequest struct {
	RefreshToken string `form:"refreshToken" json:"refreshToken"`
}

func (a *AuthController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)

	// body is optional; the cookie is the primary carrier
	_ = ctx.Bind(payload)

	pair, err := a.Auther.Refresh(ctx, payload.RefreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return RespondSuccess(ctx, http.StatusOK, "Tokens refreshed", map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (a *AuthController) SignOut(ctx router.Context) error {
	claims, _ := GetRouterClaims(ctx, a.Config.GetContextKey())

	if err := a.Auther.SignOut(ctx, claims); err != nil {
		a.Logger.Error("SignOut error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return RespondSuccess(ctx, http.StatusOK, "You are signed out", nil)
}

// Me returns the authenticated user, stripped of credentials. The gate
// already resolved and sanitized the record.
func (a *AuthController) Me(ctx router.Context) error {
	user, ok := GetRouterUser(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrTokenMalformed)
	}

	return RespondSuccess(ctx, http.StatusOK, "User details", map[string]any{
		"user": user,
	})
}
