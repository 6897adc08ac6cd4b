package recall

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Posts() Posts
	Tags() Tags
}

type mngr struct {
	db    *bun.DB
	users Users
	posts Posts
	tags  Tags
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	tags := NewTagsRepository(db)
	return &mngr{
		db:    db,
		users: NewUsersRepository(db),
		posts: NewPostsRepository(db, tags),
		tags:  tags,
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.posts == nil {
		return errors.New("repository posts should be initialized")
	}

	if m.tags == nil {
		return errors.New("repository tags should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Posts() Posts {
	return m.posts
}

func (m mngr) Tags() Tags {
	return m.tags
}
