package recall

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// SharedProfile is the public view a share link resolves to. Everything in it
// is safe for anonymous eyes.
type SharedProfile struct {
	Username       string  `json:"username"`
	ProfilePicture string  `json:"profilePicture,omitempty"`
	Posts          []*Post `json:"associatedPosts"`
}

// ShareService mints and resolves share links. Share tokens carry only the
// owner's username, are signed with their own secret, and are never
// persisted; revoking one means waiting out its expiration.
type ShareService struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	store      CredentialStore
	posts      Posts
	logger     Logger
}

func NewShareService(store CredentialStore, posts Posts, cfg Config) *ShareService {
	return &ShareService{
		signingKey: []byte(cfg.GetShareTokenSecret()),
		expiration: cfg.GetShareTokenExpiration(),
		issuer:     cfg.GetIssuer(),
		store:      store,
		posts:      posts,
		logger:     defLogger{},
	}
}

func (s *ShareService) WithLogger(logger Logger) *ShareService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Mint creates a share token for the identity. Session state is untouched;
// the holder gets read access to the owner's posts until the token expires.
func (s *ShareService) Mint(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &ShareClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.Username(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
		Username: identity.Username(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign share token")
	}

	return signedString, nil
}

// Resolve validates a share token and loads the owner's public profile with
// every post they saved. Tampered, expired, and orphaned tokens all come back
// as ErrInvalidShareToken; anonymous callers get no detail to probe with.
func (s *ShareService) Resolve(ctx context.Context, tokenString string) (*SharedProfile, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return nil, ErrInvalidShareToken
	}

	user, err := s.store.GetByIdentifier(ctx, username)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Info("Share token points at a missing user", "username", username)
			return nil, ErrInvalidShareToken
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve share token")
	}

	posts, err := s.posts.ListByOwner(ctx, user.ID, CategoryAll)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load shared posts")
	}

	return &SharedProfile{
		Username:       user.Username,
		ProfilePicture: user.ProfilePicture,
		Posts:          posts,
	}, nil
}

func (s *ShareService) parse(tokenString string) (*ShareClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidShareToken
	}

	parserOptions := make([]jwt.ParserOption, 0, 1)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &ShareClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("ShareService parse encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		s.logger.Info("Share token failed validation", "error", err)
		return nil, ErrInvalidShareToken
	}

	claims, ok := token.Claims.(*ShareClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidShareToken
	}

	return claims, nil
}
