// Package content exposes the saved-content HTTP surface: listing, reading,
// creating, updating, and deleting a user's posts.
package content

import (
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/recallhq/recall"
)

// ErrPostNotFound is returned when a post id resolves to nothing.
var ErrPostNotFound = errors.New("post not found", errors.CategoryNotFound).
	WithCode(errors.CodeBadRequest)

// ErrNotPostOwner is returned when a user touches a post they did not create.
var ErrNotPostOwner = errors.New("you do not own this post", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest)

// RegisterRoutes mounts the content endpoints. Everything here sits behind
// the access token gate.
func RegisterRoutes[T any](app router.Router[T], opts ...ControllerOption) {
	controller := NewController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Get("/content/read/:postId", protected(controller.Read)).SetName("content.read")
	app.Post("/content/create", protected(controller.Create)).SetName("content.create")
	app.Post("/content/update/:postId", protected(controller.Update)).SetName("content.update")
	app.Get("/content/delete/:postId", protected(controller.Delete)).SetName("content.delete")
	app.Get("/content/:contentType", protected(controller.Fetch)).SetName("content.fetch")
}

type Controller struct {
	Logger       recall.Logger
	Repo         recall.RepositoryManager
	Auther       recall.HTTPAuthenticator
	Config       recall.Config
	ErrorHandler func(c router.Context, err error) error
}

type ControllerOption func(*Controller) *Controller

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       defLogger{},
		ErrorHandler: recall.RespondError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in content controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in content controller...")
	}

	if c.Config == nil {
		panic("Missing Config in content controller...")
	}

	return c
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CONTENT "+format+"\n", args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CONTENT "+format+"\n", args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CONTENT "+format+"\n", args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CONTENT "+format+"\n", args...)
}

func WithLogger(logger recall.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRepo(repo recall.RepositoryManager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Repo = repo
		return c
	}
}

func WithAuther(auther recall.HTTPAuthenticator) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = auther
		return c
	}
}

func WithConfig(cfg recall.Config) ControllerOption {
	return func(c *Controller) *Controller {
		c.Config = cfg
		return c
	}
}

// PostRequest is the payload for create and update.
type PostRequest struct {
	Title       string   `form:"title" json:"title"`
	Description string   `form:"description" json:"description"`
	Link        string   `form:"link" json:"link"`
	Category    string   `form:"category" json:"category"`
	Tags        []string `form:"tags" json:"tags"`
}

// Normalize trims and lowercases the link so duplicate detection and lookups
// stay case-insensitive.
func (r *PostRequest) Normalize() {
	r.Link = strings.ToLower(strings.TrimSpace(r.Link))
	r.Title = strings.TrimSpace(r.Title)
}

// Validate will run validation rules
func (r PostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&r.Link, validation.Required),
		validation.Field(
			&r.Category,
			validation.Required,
			validation.In(recall.CategoryTweet, recall.CategoryVideo, recall.CategoryDocument),
		),
	)
}

// Fetch lists the caller's posts for one category, or all of them. The
// response carries the owner's display info so clients can render the page
// without a second round trip.
func (c *Controller) Fetch(ctx router.Context) error {
	user, ok := recall.GetRouterUser(ctx)
	if !ok {
		return c.ErrorHandler(ctx, recall.ErrTokenMalformed)
	}

	category := ctx.Param("contentType")
	if category != recall.CategoryAll && !recall.KnownCategory(category) {
		return c.ErrorHandler(ctx, errors.New("unknown content type", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"contentType": category}))
	}

	posts, err := c.Repo.Posts().ListByOwner(ctx.Context(), user.ID, category)
	if err != nil {
		c.Logger.Error("Fetch posts error", "error", err)
		return c.ErrorHandler(ctx, err)
	}

	return recall.RespondSuccess(ctx, http.StatusOK, "Posts fetched", map[string]any{
		"posts":          posts,
		"username":       user.Username,
		"profilePicture": user.ProfilePicture,
	})
}

// Read returns one post. Owners only.
func (c *Controller) Read(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	post, err := c.ownedPost(ctx, userID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return recall.RespondSuccess(ctx, http.StatusOK, "Post fetched", map[string]any{
		"post": post,
	})
}

func (c *Controller) Create(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(PostRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("Create post parse payload", "error", err)
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	payload.Normalize()

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid post data").
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"fields": recall.FormatValidationErrorToMap(err)}))
	}

	post := &recall.Post{
		Title:       payload.Title,
		Description: payload.Description,
		Link:        payload.Link,
		Category:    payload.Category,
		CreatedBy:   userID,
	}

	created, err := c.Repo.Posts().Create(ctx.Context(), post, payload.Tags)
	if err != nil {
		c.Logger.Error("Create post error", "error", err)
		return c.ErrorHandler(ctx, err)
	}

	return recall.RespondSuccess(ctx, http.StatusOK, "Post created", map[string]any{
		"post": created,
	})
}

func (c *Controller) Update(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	post, err := c.ownedPost(ctx, userID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	payload := new(PostRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("Update post parse payload", "error", err)
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	payload.Normalize()

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "Invalid post data").
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"fields": recall.FormatValidationErrorToMap(err)}))
	}

	post.Title = payload.Title
	post.Description = payload.Description
	post.Link = payload.Link
	post.Category = payload.Category

	updated, err := c.Repo.Posts().Update(ctx.Context(), post, payload.Tags)
	if err != nil {
		c.Logger.Error("Update post error", "error", err)
		return c.ErrorHandler(ctx, err)
	}

	return recall.RespondSuccess(ctx, http.StatusOK, "Post updated", map[string]any{
		"post": updated,
	})
}

func (c *Controller) Delete(ctx router.Context) error {
	userID, err := c.callerID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	post, err := c.ownedPost(ctx, userID)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if err := c.Repo.Posts().Delete(ctx.Context(), post.ID); err != nil {
		c.Logger.Error("Delete post error", "error", err)
		return c.ErrorHandler(ctx, err)
	}

	return recall.RespondSuccess(ctx, http.StatusOK, "Post deleted", nil)
}

func (c *Controller) callerID(ctx router.Context) (uuid.UUID, error) {
	claims, ok := recall.GetRouterClaims(ctx, c.Config.GetContextKey())
	if !ok {
		return uuid.Nil, recall.ErrTokenMalformed
	}

	id, err := claims.UserUUID()
	if err != nil {
		return uuid.Nil, recall.ErrTokenMalformed
	}

	return id, nil
}

// ownedPost loads the :postId param and enforces ownership.
func (c *Controller) ownedPost(ctx router.Context, userID uuid.UUID) (*recall.Post, error) {
	postID, err := uuid.Parse(ctx.Param("postId"))
	if err != nil {
		return nil, errors.New("invalid post id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	post, err := c.Repo.Posts().GetByID(ctx.Context(), postID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	if post.CreatedBy != userID {
		return nil, ErrNotPostOwner
	}

	return post, nil
}
