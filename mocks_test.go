package recall_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/recallhq/recall"
)

// TestIdentity is a simple implementation of Identity interface for testing
type TestIdentity struct {
	id             string
	username       string
	email          string
	profilePicture string
}

func (t TestIdentity) ID() string             { return t.id }
func (t TestIdentity) Username() string       { return t.username }
func (t TestIdentity) Email() string          { return t.email }
func (t TestIdentity) ProfilePicture() string { return t.profilePicture }

// testConfig is a plain Config implementation with sensible test defaults.
type testConfig struct {
	accessSecret  string
	refreshSecret string
	shareSecret   string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	shareTTL      time.Duration
	issuer        string
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessSecret:  "test-access-secret",
		refreshSecret: "test-refresh-secret",
		shareSecret:   "test-share-secret",
		accessTTL:     15 * time.Minute,
		refreshTTL:    720 * time.Hour,
		shareTTL:      time.Hour,
		issuer:        "test-issuer",
	}
}

func (c *testConfig) GetAccessTokenSecret() string            { return c.accessSecret }
func (c *testConfig) GetAccessTokenExpiration() time.Duration { return c.accessTTL }
func (c *testConfig) GetRefreshTokenSecret() string           { return c.refreshSecret }
func (c *testConfig) GetRefreshTokenExpiration() time.Duration {
	return c.refreshTTL
}
func (c *testConfig) GetShareTokenSecret() string            { return c.shareSecret }
func (c *testConfig) GetShareTokenExpiration() time.Duration { return c.shareTTL }
func (c *testConfig) GetIssuer() string                      { return c.issuer }
func (c *testConfig) GetContextKey() string                  { return "user" }
func (c *testConfig) GetTokenLookup() string {
	return "header:Authorization,cookie:accessToken"
}
func (c *testConfig) GetAuthScheme() string { return "Bearer" }
func (c *testConfig) GetCookieSecure() bool { return true }

var _ recall.Config = (*testConfig)(nil)

// MockAuthenticator implements recall.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) SignIn(ctx context.Context, identifier, password string) (*recall.TokenPair, *recall.User, error) {
	args := m.Called(ctx, identifier, password)

	var pair *recall.TokenPair
	if args.Get(0) != nil {
		pair = args.Get(0).(*recall.TokenPair)
	}

	var user *recall.User
	if args.Get(1) != nil {
		user = args.Get(1).(*recall.User)
	}

	return pair, user, args.Error(2)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, presented string) (*recall.TokenPair, error) {
	args := m.Called(ctx, presented)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.TokenPair), args.Error(1)
}

func (m *MockAuthenticator) SignOut(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthenticator) SessionFromToken(token string) (*recall.SessionClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.SessionClaims), args.Error(1)
}

func (m *MockAuthenticator) IdentityFromClaims(ctx context.Context, claims *recall.SessionClaims) (*recall.User, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.User), args.Error(1)
}

var _ recall.Authenticator = (*MockAuthenticator)(nil)

// MockRepositoryManager implements recall.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Users() recall.Users {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(recall.Users)
}

func (m *MockRepositoryManager) Posts() recall.Posts {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(recall.Posts)
}

func (m *MockRepositoryManager) Tags() recall.Tags {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(recall.Tags)
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

var _ recall.RepositoryManager = (*MockRepositoryManager)(nil)

// MockCredentialStore implements recall.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*recall.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.User), args.Error(1)
}

func (m *MockCredentialStore) FindByID(ctx context.Context, id uuid.UUID) (*recall.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.User), args.Error(1)
}

func (m *MockCredentialStore) Register(ctx context.Context, user *recall.User) (*recall.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.User), args.Error(1)
}

func (m *MockCredentialStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockCredentialStore) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ recall.CredentialStore = (*MockCredentialStore)(nil)

// MockIdentityProvider implements recall.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*recall.User, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.User), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByID(ctx context.Context, id uuid.UUID) (*recall.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.User), args.Error(1)
}

var _ recall.IdentityProvider = (*MockIdentityProvider)(nil)

// MockPosts implements recall.Posts
type MockPosts struct {
	mock.Mock
}

func (m *MockPosts) ListByOwner(ctx context.Context, ownerID uuid.UUID, category recall.Category) ([]*recall.Post, error) {
	args := m.Called(ctx, ownerID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recall.Post), args.Error(1)
}

func (m *MockPosts) GetByID(ctx context.Context, id uuid.UUID) (*recall.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.Post), args.Error(1)
}

func (m *MockPosts) Create(ctx context.Context, post *recall.Post, tagNames []string) (*recall.Post, error) {
	args := m.Called(ctx, post, tagNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.Post), args.Error(1)
}

func (m *MockPosts) Update(ctx context.Context, post *recall.Post, tagNames []string) (*recall.Post, error) {
	args := m.Called(ctx, post, tagNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recall.Post), args.Error(1)
}

func (m *MockPosts) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ recall.Posts = (*MockPosts)(nil)
