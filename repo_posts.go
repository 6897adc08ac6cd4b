package recall

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Posts stores saved content. Writes that touch tags run in a transaction so
// a post never lands without its labels.
type Posts interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID, category Category) ([]*Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	Create(ctx context.Context, post *Post, tagNames []string) (*Post, error)
	Update(ctx context.Context, post *Post, tagNames []string) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type posts struct {
	db   *bun.DB
	tags Tags
}

var _ Posts = (*posts)(nil)

func NewPostsRepository(db *bun.DB, tags Tags) Posts {
	return &posts{db: db, tags: tags}
}

// ListByOwner returns the owner's posts, newest first. CategoryAll skips the
// category filter.
func (r *posts) ListByOwner(ctx context.Context, ownerID uuid.UUID, category Category) ([]*Post, error) {
	var models []*Post

	q := r.db.NewSelect().
		Model(&models).
		Relation("Tags").
		Where("?TableAlias.created_by = ?", ownerID)

	if category != CategoryAll {
		q = q.Where("?TableAlias.category = ?", category)
	}

	err := q.
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return []*Post{}, nil
		}
		return nil, err
	}

	return models, nil
}

func (r *posts) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	post := &Post{}
	err := r.db.NewSelect().
		Model(post).
		Relation("Tags").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("post not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return post, nil
}

func (r *posts) Create(ctx context.Context, post *Post, tagNames []string) (*Post, error) {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(post).Exec(ctx); err != nil {
			return err
		}
		return r.attachTagsTx(ctx, tx, post, tagNames)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, post.ID)
}

func (r *posts) Update(ctx context.Context, post *Post, tagNames []string) (*Post, error) {
	now := time.Now()
	post.UpdatedAt = &now

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model(post).
			Column("title", "description", "link", "category", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		if tagNames == nil {
			return nil
		}

		if _, err := tx.NewDelete().
			Model((*PostTag)(nil)).
			Where("post_id = ?", post.ID).
			Exec(ctx); err != nil {
			return err
		}

		return r.attachTagsTx(ctx, tx, post, tagNames)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, post.ID)
}

func (r *posts) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*PostTag)(nil)).
			Where("post_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewDelete().
			Model((*Post)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

func (r *posts) attachTagsTx(ctx context.Context, tx bun.Tx, post *Post, tagNames []string) error {
	if len(tagNames) == 0 {
		return nil
	}

	tags, err := r.tags.GetOrCreateTx(ctx, tx, tagNames)
	if err != nil {
		return err
	}

	links := make([]*PostTag, 0, len(tags))
	for _, tag := range tags {
		links = append(links, &PostTag{PostID: post.ID, TagID: tag.ID})
	}

	_, err = tx.NewInsert().
		Model(&links).
		On("CONFLICT (post_id, tag_id) DO NOTHING").
		Exec(ctx)
	return err
}
