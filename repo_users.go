package recall

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetRefreshTokenSQL overwrites the single stored refresh token. Single
// column write so concurrent profile updates never clobber the session.
var SetRefreshTokenSQL = `UPDATE "users" AS "usr"
SET
	"refresh_token" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// ClearRefreshTokenSQL unsets the stored refresh token. The ORM skips zero
// values on update, so the NULL write has to be raw SQL.
var ClearRefreshTokenSQL = `UPDATE "users" AS "usr"
SET
	"refresh_token" = NULL
WHERE
	"usr"."id" = ?
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	SetRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
	ClearRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ CredentialStore              = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx creates a new user after checking neither the username nor the
// email is taken. The unique indexes still back this up under concurrency.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	for _, identifier := range []string{user.Username, user.Email} {
		if identifier == "" {
			continue
		}
		if _, err := a.GetByIdentifierTx(ctx, tx, identifier); err == nil {
			return nil, ErrDuplicateIdentity
		} else if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	return a.CreateTx(ctx, tx, user)
}

// GetByIdentifier looks a user up by username or email, trying each column
// the identifier could plausibly match.
func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.Repository.GetByID(ctx, id.String())
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	return a.SetRefreshTokenTx(ctx, a.db, id, token)
}

func (a *users) SetRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	res, err := a.Repository.RawTx(ctx, tx, SetRefreshTokenSQL, token, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return a.ClearRefreshTokenTx(ctx, a.db, id)
}

// ClearRefreshTokenTx never reports not found. Signing out an already
// signed-out or deleted user leaves nothing to unset.
func (a *users) ClearRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := a.Repository.RawTx(ctx, tx, ClearRefreshTokenSQL, id.String())
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Username = NormalizeUsername(record.Username)
	record.Email = NormalizeEmail(record.Email)
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  NormalizeEmail(trimmed),
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  NormalizeUsername(trimmed),
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
