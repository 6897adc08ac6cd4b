package recall

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tags stores free-text labels. Names are shared across users and deduped
// case-insensitively.
type Tags interface {
	GetOrCreate(ctx context.Context, names []string) ([]*Tag, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, names []string) ([]*Tag, error)
	List(ctx context.Context) ([]*Tag, error)
}

type tags struct {
	db *bun.DB
}

var _ Tags = (*tags)(nil)

func NewTagsRepository(db *bun.DB) Tags {
	return &tags{db: db}
}

func (r *tags) GetOrCreate(ctx context.Context, names []string) ([]*Tag, error) {
	return r.GetOrCreateTx(ctx, r.db, names)
}

func (r *tags) GetOrCreateTx(ctx context.Context, tx bun.IDB, names []string) ([]*Tag, error) {
	out := make([]*Tag, 0, len(names))
	seen := map[string]bool{}

	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag := &Tag{}
		err := tx.NewSelect().
			Model(tag).
			Where("?TableAlias.name = ?", name).
			Limit(1).
			Scan(ctx)
		if err == nil {
			out = append(out, tag)
			continue
		}
		if err != sql.ErrNoRows {
			return nil, err
		}

		tag = &Tag{ID: uuid.New(), Name: name}
		if _, err := tx.NewInsert().
			Model(tag).
			On("CONFLICT (name) DO UPDATE SET name = EXCLUDED.name").
			Returning("*").
			Exec(ctx); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}

	return out, nil
}

func (r *tags) List(ctx context.Context) ([]*Tag, error) {
	var models []*Tag
	err := r.db.NewSelect().
		Model(&models).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return []*Tag{}, nil
		}
		return nil, err
	}
	return models, nil
}
