package recall

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Category is a post's content category
type Category = string

const (
	// CategoryTweet is a saved tweet link
	CategoryTweet Category = "tweet"
	// CategoryVideo is a saved video link
	CategoryVideo Category = "video"
	// CategoryDocument is a saved document link
	CategoryDocument Category = "document"
	// CategoryAll is the fetch filter matching every category. Never stored.
	CategoryAll Category = "all"
)

// KnownCategory reports whether c is a storable post category.
func KnownCategory(c Category) bool {
	switch c {
	case CategoryTweet, CategoryVideo, CategoryDocument:
		return true
	}
	return false
}

// User is the user model. RefreshToken holds the single active refresh token
// and is empty when the user is signed out; PasswordHash and RefreshToken are
// stripped from every JSON response via Sanitize.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	RefreshToken   string     `bun:"refresh_token,nullzero" json:"refresh_token,omitempty"`
	ProfilePicture string     `bun:"profile_picture" json:"profile_picture,omitempty"`
	Posts          []*Post    `bun:"rel:has-many,join:id=created_by" json:"posts,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Sanitize returns a copy safe to put on the wire: no password hash, no
// refresh token.
func (u *User) Sanitize() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	clone.RefreshToken = ""
	return &clone
}

// Post is a saved piece of content
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:pst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Link          string     `bun:"link" json:"link,omitempty"`
	Category      Category   `bun:"category,notnull" json:"category,omitempty"`
	CreatedBy     uuid.UUID  `bun:"created_by,notnull,type:uuid" json:"created_by,omitempty"`
	Tags          []*Tag     `bun:"m2m:post_tags,join:Post=Tag" json:"tags,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Tag is a free-text label shared across posts
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PostTag is the join table between posts and tags
type PostTag struct {
	bun.BaseModel `bun:"table:post_tags,alias:ptg"`
	PostID        uuid.UUID `bun:"post_id,pk,type:uuid" json:"post_id,omitempty"`
	Post          *Post     `bun:"rel:belongs-to,join:post_id=id" json:"-"`
	TagID         uuid.UUID `bun:"tag_id,pk,type:uuid" json:"tag_id,omitempty"`
	Tag           *Tag      `bun:"rel:belongs-to,join:tag_id=id" json:"-"`
}
