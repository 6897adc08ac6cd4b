package recall

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserProvider verifies credentials against a CredentialStore.
type UserProvider struct {
	store  CredentialStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store CredentialStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user by username or email, compare the
// password to the stored hash, and return the matching record. Lookup misses
// and password mismatches surface as distinct kinds; neither ever carries the
// stored hash.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*User, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	return user, nil
}

// FindIdentityByID resolves a user id to its record.
func (u *UserProvider) FindIdentityByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := u.store.FindByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return user, nil
}

var _ IdentityProvider = (*UserProvider)(nil)
