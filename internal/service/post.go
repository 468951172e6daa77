package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// Pagination constants for ListPosts.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// SearchMode selects which search contract SearchPosts implements.
// The two are deliberately not merged: they disagree on tags and ordering.
type SearchMode string

const (
	// SearchText uses the store's full-text index over title and content.
	// Tags are not searched; order is the store's relevance order.
	SearchText SearchMode = "text"
	// SearchRegex matches the query as a case-insensitive pattern against
	// title or content, or exactly against one tag; newest first.
	SearchRegex SearchMode = "regex"
)

// AuthorMode selects the CreatePost contract.
type AuthorMode string

const (
	// AuthorRequired: every post names an existing user as its author.
	AuthorRequired AuthorMode = "required"
	// AuthorAnonymous: posts carry no author; authorId is ignored.
	AuthorAnonymous AuthorMode = "anonymous"
)

// PostConfig holds the alternative behaviors chosen at startup.
type PostConfig struct {
	SearchMode SearchMode
	AuthorMode AuthorMode
}

// CreatePostInput is the validated-at-the-edge payload for CreatePost.
// nil Tags means "omitted" and is stored as [].
type CreatePostInput struct {
	Title    string
	Content  string
	AuthorID string
	Tags     []string
}

// UpdatePostInput replaces all three fields; there is no partial update.
type UpdatePostInput struct {
	Title   string
	Content string
	Tags    []string
}

// PostService owns the post aggregate: posts, their comments, tags and views.
//
// It reads users only to resolve a display name at write time. That name is
// copied into the post or comment and never refreshed.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	cfg    PostConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, cfg PostConfig, logger *slog.Logger) *PostService {
	if cfg.SearchMode == "" {
		cfg.SearchMode = SearchText
	}
	if cfg.AuthorMode == "" {
		cfg.AuthorMode = AuthorRequired
	}
	return &PostService{
		posts:  posts,
		users:  users,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Config reports the modes this service runs with.
func (s *PostService) Config() PostConfig { return s.cfg }

// CreatePost validates, resolves the author (in AuthorRequired mode) and stores
// a new post with views=0, no comments and both timestamps set to now.
//
// The author lookup and the insert are two independent store calls. Nothing
// is written unless the lookup succeeded.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title and content are required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.ValidationFailed("content", "Title and content are required")
	}

	now := s.now()
	post := &model.Post{
		Title:     title,
		Content:   in.Content,
		Tags:      in.Tags,
		Comments:  []model.Comment{},
		Views:     0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	post.Normalize()

	if s.cfg.AuthorMode == AuthorRequired {
		authorID := strings.TrimSpace(in.AuthorID)
		if authorID == "" {
			return nil, apperror.ValidationFailed("authorId", "Author ID is required")
		}
		author, err := s.lookupAuthor(ctx, authorID)
		if err != nil {
			return nil, err
		}
		post.AuthorID = author.ID
		post.AuthorName = author.Name
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author_id", post.AuthorID),
	)
	return post, nil
}

// GetPost returns the post and counts the read: every successful call adds
// exactly one view, and the returned Views already includes it.
func (s *PostService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}

	post, err := s.posts.GetAndIncrementViews(ctx, id)
	if err != nil {
		return nil, s.storeError("failed to get post", err, slog.String("id", id))
	}
	return post, nil
}

// UpdatePost replaces title, content and tags wholesale and refreshes updatedAt.
func (s *PostService) UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title and content are required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperror.ValidationFailed("content", "Title and content are required")
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	post := &model.Post{
		ID:        id,
		Title:     title,
		Content:   in.Content,
		Tags:      tags,
		UpdatedAt: s.now(),
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, s.storeError("failed to update post", err, slog.String("id", id))
	}

	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// DeletePost removes the post and its comments.
func (s *PostService) DeletePost(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "post ID is required")
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return s.storeError("failed to delete post", err, slog.String("id", id))
	}

	s.logger.Info("post deleted", slog.String("id", id))
	return nil
}

// ListPosts returns one page of the newest-first listing.
//
// PAGINATION MATH:
//
//	skip       = (page-1) * limit
//	totalPages = ceil(totalPosts / limit)
//
// A page past the end is not an error: it has no posts but still reports
// the totals. limit above MaxLimit is clamped, and totalPages uses the
// clamped value.
func (s *PostService) ListPosts(ctx context.Context, page, limit int) (*model.PostPage, error) {
	if page < 1 {
		return nil, apperror.ValidationFailed("page", "page must be a positive integer")
	}
	if limit < 1 {
		return nil, apperror.ValidationFailed("limit", "limit must be a positive integer")
	}
	limit = min(limit, MaxLimit)

	var (
		posts []model.Post
		total int64
	)

	// The page and the count are independent reads, so they run side by side.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.posts.List(gctx, repository.ListOptions{
			Limit:  limit,
			Offset: (page - 1) * limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.posts.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	if posts == nil {
		posts = []model.Post{}
	}
	return &model.PostPage{
		Posts:      posts,
		Page:       page,
		TotalPages: totalPages(total, limit),
		TotalPosts: total,
	}, nil
}

// SearchPosts runs the configured search strategy. The query is passed
// through as given; deciding what an empty query means is the caller's job.
func (s *PostService) SearchPosts(ctx context.Context, query string) ([]model.Post, error) {
	var (
		posts []model.Post
		err   error
	)
	switch s.cfg.SearchMode {
	case SearchRegex:
		posts, err = s.posts.SearchPattern(ctx, query)
	default:
		posts, err = s.posts.SearchText(ctx, query)
	}
	if err != nil {
		s.logger.Error("failed to search posts",
			slog.String("mode", string(s.cfg.SearchMode)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching posts: %w", err)
	}
	return posts, nil
}

// ListPostsByTag: exact, case-sensitive, newest first, unpaginated.
func (s *PostService) ListPostsByTag(ctx context.Context, tag string) ([]model.Post, error) {
	posts, err := s.posts.ListByTag(ctx, tag)
	if err != nil {
		s.logger.Error("failed to list posts by tag",
			slog.String("tag", tag),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing posts by tag: %w", err)
	}
	return posts, nil
}

// AddComment appends a comment and returns it.
//
// The author is checked before the post. The post check itself is part of
// the atomic append: a missing post simply matches nothing. The same update
// moves the post's updatedAt forward to the comment's createdAt.
func (s *PostService) AddComment(ctx context.Context, postID, authorID, content string) (*model.Comment, error) {
	postID = strings.TrimSpace(postID)
	authorID = strings.TrimSpace(authorID)
	switch {
	case postID == "":
		return nil, apperror.ValidationFailed("id", "post ID is required")
	case authorID == "":
		return nil, apperror.ValidationFailed("authorId", "Author ID and content are required")
	case strings.TrimSpace(content) == "":
		return nil, apperror.ValidationFailed("content", "Author ID and content are required")
	}

	author, err := s.lookupAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.posts.AppendComment(ctx, postID, comment); err != nil {
		return nil, s.storeError("failed to add comment", err, slog.String("post_id", postID))
	}

	s.logger.Info("comment added",
		slog.String("post_id", postID),
		slog.String("comment_id", comment.ID),
	)
	return comment, nil
}

// lookupAuthor resolves a user for denormalization. A missing user is
// reported as a missing "author", which is what the caller referenced.
func (s *PostService) lookupAuthor(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("author", id)
		}
		s.logger.Error("failed to look up author", slog.String("id", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("looking up author: %w", err)
	}
	return user, nil
}

// storeError passes domain errors through untouched and logs the rest.
func (s *PostService) storeError(msg string, err error, attrs ...any) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	return fmt.Errorf("%s: %w", strings.TrimPrefix(msg, "failed to "), err)
}

func totalPages(total int64, limit int) int {
	if total <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}
