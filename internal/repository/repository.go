// Package repository declares the storage contracts the services depend on.
//
// Two implementations exist: repository/mongodb (the document store) and
// repository/sqlite (embedded). Services only see these interfaces, so the
// backend is chosen once in the server wiring.
//
// Every method is one store round trip, attempted exactly once. Methods that
// "look up and mutate" a post (GetAndIncrementViews, Update, AppendComment)
// are a single atomic store-level update, never a read-modify-write pair.
package repository

import (
	"context"

	"github.com/sakif/blog-platform/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository persists accounts. Create returns an apperror.ErrDuplicate
// error when the email is taken; lookups return apperror.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail is exact-match and is the only read that fills PasswordHash.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// PostRepository persists the post aggregate. All post lists come back
// newest first except SearchText, which keeps the store's relevance order.
type PostRepository interface {
	// Create assigns ID and stores the post as given (timestamps included).
	Create(ctx context.Context, post *model.Post) error
	// GetAndIncrementViews bumps the counter by one and returns the post as it
	// is after the increment. Nothing is written when the post does not exist.
	GetAndIncrementViews(ctx context.Context, id string) (*model.Post, error)
	// Update replaces Title, Content and Tags wholesale, stores UpdatedAt,
	// and overwrites *post with the stored aggregate.
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]model.Post, error)
	Count(ctx context.Context) (int64, error)
	ListByTag(ctx context.Context, tag string) ([]model.Post, error)
	// SearchText uses the store's full-text index over title and content.
	SearchText(ctx context.Context, query string) ([]model.Post, error)
	// SearchPattern matches pattern case-insensitively against title or
	// content, or exactly against one tag.
	SearchPattern(ctx context.Context, pattern string) ([]model.Post, error)
	// AppendComment assigns comment.ID, pushes it onto the post's comments and
	// raises the post's UpdatedAt to at least comment.CreatedAt, in one atomic update.
	AppendComment(ctx context.Context, postID string, comment *model.Comment) error
}

// Store is a storage backend: both repositories plus the client lifecycle.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
