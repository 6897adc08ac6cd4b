package recall_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall"
)

func expectCookieSet(ctx *router.MockContext, name, value string) {
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == name &&
			c.Value == value &&
			c.HTTPOnly &&
			c.Expires.After(time.Now())
	})).Return()
}

func expectCookieDel(ctx *router.MockContext, name string) {
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == name &&
			c.Value == "" &&
			c.HTTPOnly &&
			c.Expires.Before(time.Now())
	})).Return()
}

func captureResponse(ctx *router.MockContext, httpStatus int, out *recall.Response) {
	ctx.On("JSON", httpStatus, mock.Anything).Run(func(args mock.Arguments) {
		*out = args.Get(1).(recall.Response)
	}).Return(nil)
}

func TestNewHTTPAuthenticator(t *testing.T) {
	t.Run("requires an authenticator", func(t *testing.T) {
		_, err := recall.NewHTTPAuthenticator(nil, newTestConfig())
		assert.Error(t, err)
	})

	t.Run("wires defaults", func(t *testing.T) {
		auther, err := recall.NewHTTPAuthenticator(new(MockAuthenticator), newTestConfig())
		require.NoError(t, err)
		assert.NotNil(t, auther.ErrorHandler)
	})
}

func TestRouteAuthenticatorSignIn(t *testing.T) {
	pair := &recall.TokenPair{AccessToken: "access.jwt.token", RefreshToken: "refresh.jwt.token"}
	user := &recall.User{ID: uuid.New(), Username: "testuser", Email: "test@example.com"}

	t.Run("sets both session cookies", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("SignIn", mock.Anything, "testuser", "password123").Return(pair, user, nil)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		expectCookieSet(ctx, recall.CookieAccessToken, pair.AccessToken)
		expectCookieSet(ctx, recall.CookieRefreshToken, pair.RefreshToken)

		gotPair, gotUser, err := auther.SignIn(ctx, recall.SignInRequest{
			Username: "testuser",
			Password: "password123",
		})
		require.NoError(t, err)
		assert.Equal(t, pair, gotPair)
		assert.Equal(t, user, gotUser)

		ctx.AssertExpectations(t)
		auth.AssertExpectations(t)
	})

	t.Run("no cookies on rejected credentials", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("SignIn", mock.Anything, "testuser", "wrong-pass").
			Return(nil, nil, recall.ErrMismatchedHashAndPassword)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())

		_, _, err = auther.SignIn(ctx, recall.SignInRequest{
			Username: "testuser",
			Password: "wrong-pass",
		})
		require.ErrorIs(t, err, recall.ErrMismatchedHashAndPassword)

		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestRouteAuthenticatorRefresh(t *testing.T) {
	pair := &recall.TokenPair{AccessToken: "new.access.token", RefreshToken: "new.refresh.token"}

	t.Run("cookie wins over fallback", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Refresh", mock.Anything, "cookie.refresh.token").Return(pair, nil)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.CookiesM[recall.CookieRefreshToken] = "cookie.refresh.token"
		expectCookieSet(ctx, recall.CookieAccessToken, pair.AccessToken)
		expectCookieSet(ctx, recall.CookieRefreshToken, pair.RefreshToken)

		gotPair, err := auther.Refresh(ctx, "body.refresh.token")
		require.NoError(t, err)
		assert.Equal(t, pair, gotPair)

		ctx.AssertExpectations(t)
		auth.AssertExpectations(t)
	})

	t.Run("falls back to the given token", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Refresh", mock.Anything, "body.refresh.token").Return(pair, nil)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		expectCookieSet(ctx, recall.CookieAccessToken, pair.AccessToken)
		expectCookieSet(ctx, recall.CookieRefreshToken, pair.RefreshToken)

		_, err = auther.Refresh(ctx, "body.refresh.token")
		require.NoError(t, err)

		auth.AssertExpectations(t)
	})

	t.Run("no cookies on rejected token", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Refresh", mock.Anything, "replayed.token").
			Return(nil, recall.ErrRefreshTokenReused)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.CookiesM[recall.CookieRefreshToken] = "replayed.token"

		_, err = auther.Refresh(ctx, "")
		require.ErrorIs(t, err, recall.ErrRefreshTokenReused)

		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestRouteAuthenticatorSignOut(t *testing.T) {
	t.Run("destroys the session and expires cookies", func(t *testing.T) {
		userID := uuid.New()

		auth := new(MockAuthenticator)
		auth.On("SignOut", mock.Anything, userID).Return(nil)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		expectCookieDel(ctx, recall.CookieAccessToken)
		expectCookieDel(ctx, recall.CookieRefreshToken)

		err = auther.SignOut(ctx, &recall.SessionClaims{UID: userID.String()})
		require.NoError(t, err)

		ctx.AssertExpectations(t)
		auth.AssertExpectations(t)
	})

	t.Run("nil claims still expires cookies", func(t *testing.T) {
		auth := new(MockAuthenticator)

		auther, err := recall.NewHTTPAuthenticator(auth, newTestConfig())
		require.NoError(t, err)

		ctx := router.NewMockContext()
		expectCookieDel(ctx, recall.CookieAccessToken)
		expectCookieDel(ctx, recall.CookieRefreshToken)

		require.NoError(t, auther.SignOut(ctx, nil))

		ctx.AssertExpectations(t)
		auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
	})
}

func TestSetSessionCookies(t *testing.T) {
	auther, err := recall.NewHTTPAuthenticator(new(MockAuthenticator), newTestConfig())
	require.NoError(t, err)

	t.Run("nil pair writes nothing", func(t *testing.T) {
		ctx := router.NewMockContext()
		auther.SetSessionCookies(ctx, nil)
		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestRespondError(t *testing.T) {
	t.Run("client errors keep their status", func(t *testing.T) {
		ctx := router.NewMockContext()
		var resp recall.Response
		captureResponse(ctx, http.StatusBadRequest, &resp)

		require.NoError(t, recall.RespondError(ctx, recall.ErrMismatchedHashAndPassword))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "provided password is incorrect", resp.Message)
		assert.Nil(t, resp.Data)
	})

	t.Run("expired tokens get their own status", func(t *testing.T) {
		ctx := router.NewMockContext()
		var resp recall.Response
		captureResponse(ctx, http.StatusRequestTimeout, &resp)

		require.NoError(t, recall.RespondError(ctx, recall.ErrTokenExpired))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "token has expired", resp.Message)
	})

	t.Run("unknown errors become a 500", func(t *testing.T) {
		ctx := router.NewMockContext()
		var resp recall.Response
		captureResponse(ctx, http.StatusInternalServerError, &resp)

		require.NoError(t, recall.RespondError(ctx, fmt.Errorf("connection reset")))
		assert.Equal(t, recall.StatusServerError, resp.Status)
		assert.Equal(t, "An unexpected server error occurred", resp.Message)
	})
}

func TestMakeClientRouteAuthErrorHandler(t *testing.T) {
	newAuther := func(t *testing.T) *recall.RouteAuthenticator {
		t.Helper()
		auther, err := recall.NewHTTPAuthenticator(new(MockAuthenticator), newTestConfig())
		require.NoError(t, err)
		return auther
	}

	t.Run("expired token maps to its dedicated status", func(t *testing.T) {
		handler := newAuther(t).MakeClientRouteAuthErrorHandler(false)

		ctx := router.NewMockContext()
		var resp recall.Response
		captureResponse(ctx, http.StatusRequestTimeout, &resp)

		require.NoError(t, handler(ctx, fmt.Errorf("token is expired")))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "token has expired", resp.Message)
	})

	t.Run("malformed token maps to a 400", func(t *testing.T) {
		handler := newAuther(t).MakeClientRouteAuthErrorHandler(false)

		ctx := router.NewMockContext()
		var resp recall.Response
		captureResponse(ctx, http.StatusBadRequest, &resp)

		require.NoError(t, handler(ctx, fmt.Errorf("missing or malformed JWT")))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "invalid access token", resp.Message)
	})

	t.Run("anything else maps to a 400", func(t *testing.T) {
		handler := newAuther(t).MakeClientRouteAuthErrorHandler(false)

		ctx := router.NewMockContext()
		var resp recall.Response
		captureResponse(ctx, http.StatusBadRequest, &resp)

		require.NoError(t, handler(ctx, fmt.Errorf("signature is invalid")))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "Invalid access token", resp.Message)
	})

	t.Run("optional auth proceeds to the handler", func(t *testing.T) {
		handler := newAuther(t).MakeClientRouteAuthErrorHandler(true)

		ctx := router.NewMockContext()
		require.NoError(t, handler(ctx, fmt.Errorf("token is expired")))

		assert.True(t, ctx.NextCalled)
		ctx.AssertNotCalled(t, "JSON", mock.Anything, mock.Anything)
	})
}

func newTestAuthController(t *testing.T, auth *MockAuthenticator) *recall.AuthController {
	t.Helper()

	cfg := newTestConfig()
	auther, err := recall.NewHTTPAuthenticator(auth, cfg)
	require.NoError(t, err)

	return recall.NewAuthController(
		recall.WithAuthControllerRepo(new(MockRepositoryManager)),
		recall.WithAuthControllerAuther(auther),
		recall.WithAuthControllerConfig(cfg),
	)
}

func TestAuthControllerSignIn(t *testing.T) {
	t.Run("responds with both tokens and the sanitized user", func(t *testing.T) {
		pair := &recall.TokenPair{AccessToken: "access.jwt.token", RefreshToken: "refresh.jwt.token"}
		user := &recall.User{
			ID:           uuid.New(),
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: "$2a$10$hash",
			RefreshToken: "refresh.jwt.token",
		}

		auth := new(MockAuthenticator)
		auth.On("SignIn", mock.Anything, "testuser", "password123").
			Return(pair, user.Sanitize(), nil)

		ctrl := newTestAuthController(t, auth)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*recall.SignInRequest)
			payload.Username = "testuser"
			payload.Password = "password123"
		}).Return(nil)
		expectCookieSet(ctx, recall.CookieAccessToken, pair.AccessToken)
		expectCookieSet(ctx, recall.CookieRefreshToken, pair.RefreshToken)

		var resp recall.Response
		captureResponse(ctx, http.StatusOK, &resp)

		require.NoError(t, ctrl.SignIn(ctx))
		assert.Equal(t, recall.StatusSuccess, resp.Status)
		assert.Equal(t, "You are signed in", resp.Message)

		data := resp.Data.(map[string]any)
		assert.Equal(t, pair.AccessToken, data["accessToken"])
		assert.Equal(t, pair.RefreshToken, data["refreshToken"])

		got := data["user"].(*recall.User)
		assert.Equal(t, "testuser", got.Username)
		assert.Empty(t, got.PasswordHash)
		assert.Empty(t, got.RefreshToken)

		ctx.AssertExpectations(t)
		auth.AssertExpectations(t)
	})

	t.Run("requires an identifier", func(t *testing.T) {
		auth := new(MockAuthenticator)
		ctrl := newTestAuthController(t, auth)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*recall.SignInRequest)
			payload.Password = "password123"
		}).Return(nil)

		var resp recall.Response
		captureResponse(ctx, http.StatusBadRequest, &resp)

		require.NoError(t, ctrl.SignIn(ctx))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "username or email is required", resp.Message)

		auth.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthControllerRefresh(t *testing.T) {
	t.Run("rotates using the body token", func(t *testing.T) {
		pair := &recall.TokenPair{AccessToken: "new.access.token", RefreshToken: "new.refresh.token"}

		auth := new(MockAuthenticator)
		auth.On("Refresh", mock.Anything, "body.refresh.token").Return(pair, nil)

		ctrl := newTestAuthController(t, auth)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*recall.RefreshRequest)
			payload.RefreshToken = "body.refresh.token"
		}).Return(nil)
		expectCookieSet(ctx, recall.CookieAccessToken, pair.AccessToken)
		expectCookieSet(ctx, recall.CookieRefreshToken, pair.RefreshToken)

		var resp recall.Response
		captureResponse(ctx, http.StatusOK, &resp)

		require.NoError(t, ctrl.Refresh(ctx))
		assert.Equal(t, recall.StatusSuccess, resp.Status)
		assert.Equal(t, "Tokens refreshed", resp.Message)

		data := resp.Data.(map[string]any)
		assert.Equal(t, pair.AccessToken, data["accessToken"])
		assert.Equal(t, pair.RefreshToken, data["refreshToken"])

		auth.AssertExpectations(t)
	})

	t.Run("no token anywhere is a 400", func(t *testing.T) {
		auth := new(MockAuthenticator)
		auth.On("Refresh", mock.Anything, "").Return(nil, recall.ErrMissingRefreshToken)

		ctrl := newTestAuthController(t, auth)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Return(nil)

		var resp recall.Response
		captureResponse(ctx, http.StatusBadRequest, &resp)

		require.NoError(t, ctrl.Refresh(ctx))
		assert.Equal(t, recall.StatusClientError, resp.Status)
		assert.Equal(t, "invalid request", resp.Message)

		ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	})
}

func TestAuthControllerSignOut(t *testing.T) {
	t.Run("destroys the session", func(t *testing.T) {
		userID := uuid.New()

		auth := new(MockAuthenticator)
		auth.On("SignOut", mock.Anything, userID).Return(nil)

		ctrl := newTestAuthController(t, auth)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.LocalsMock["user"] = &recall.SessionClaims{UID: userID.String()}
		expectCookieDel(ctx, recall.CookieAccessToken)
		expectCookieDel(ctx, recall.CookieRefreshToken)

		var resp recall.Response
		captureResponse(ctx, http.StatusOK, &resp)

		require.NoError(t, ctrl.SignOut(ctx))
		assert.Equal(t, recall.StatusSuccess, resp.Status)
		assert.Equal(t, "You are signed out", resp.Message)

		ctx.AssertExpectations(t)
		auth.AssertExpectations(t)
	})

	t.Run("no session stored is still a success", func(t *testing.T) {
		auth := new(MockAuthenticator)
		ctrl := newTestAuthController(t, auth)

		ctx := router.NewMockContext()
		expectCookieDel(ctx, recall.CookieAccessToken)
		expectCookieDel(ctx, recall.CookieRefreshToken)

		var resp recall.Response
		captureResponse(ctx, http.StatusOK, &resp)

		require.NoError(t, ctrl.SignOut(ctx))
		assert.Equal(t, recall.StatusSuccess, resp.Status)

		auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
	})
}
