package recall

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// RegisterShareRoutes mounts the share-link endpoints: an authenticated mint
// route and the anonymous resolver.
func RegisterShareRoutes[T any](app router.Router[T], opts ...ShareControllerOption) {
	controller := NewShareController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Get("/share", protected(controller.Mint)).SetName("share.mint")
	app.Get("/share/public/:token", controller.Resolve).SetName("share.resolve")
}

type ShareController struct {
	Logger       Logger
	Share        *ShareService
	Auther       HTTPAuthenticator
	Config       Config
	ErrorHandler func(c router.Context, err error) error
}

type ShareControllerOption func(*ShareController) *ShareController

func NewShareController(opts ...ShareControllerOption) *ShareController {
	c := &ShareController{
		Logger:       defLogger{},
		ErrorHandler: RespondError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Share == nil {
		panic("Missing ShareService in share controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in share controller...")
	}

	if c.Config == nil {
		panic("Missing Config in share controller...")
	}

	return c
}

func WithShareControllerLogger(logger Logger) ShareControllerOption {
	return func(c *ShareController) *ShareController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithShareControllerService(share *ShareService) ShareControllerOption {
	return func(c *ShareController) *ShareController {
		c.Share = share
		return c
	}
}

func WithShareControllerAuther(auther HTTPAuthenticator) ShareControllerOption {
	return func(c *ShareController) *ShareController {
		c.Auther = auther
		return c
	}
}

func WithShareControllerConfig(cfg Config) ShareControllerOption {
	return func(c *ShareController) *ShareController {
		c.Config = cfg
		return c
	}
}

// Mint creates a share token for the signed-in user.
func (s *ShareController) Mint(ctx router.Context) error {
	user, ok := GetRouterUser(ctx)
	if !ok {
		return s.ErrorHandler(ctx, ErrTokenMalformed)
	}

	token, err := s.Share.Mint(NewIdentityFromUser(user))
	if err != nil {
		s.Logger.Error("Share mint error", "error", err)
		return s.ErrorHandler(ctx, err)
	}

	return RespondSuccess(ctx, http.StatusOK, "Share link created", map[string]any{
		"token": token,
	})
}

// Resolve is the anonymous consumption path. It answers with the owner's
// public profile and posts, or a generic rejection.
func (s *ShareController) Resolve(ctx router.Context) error {
	token := ctx.Param("token")
	if token == "" {
		return s.ErrorHandler(ctx, ErrInvalidShareToken)
	}

	profile, err := s.Share.Resolve(ctx.Context(), token)
	if err != nil {
		return s.ErrorHandler(ctx, err)
	}

	return RespondSuccess(ctx, http.StatusOK, "Shared content", profile)
}
