package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// PostDB is the posts table: one row per aggregate.
type PostDB struct {
	conn *sql.DB
}

var _ repository.PostRepository = (*PostDB)(nil)

// postColumns is the column list every post query selects, in scanPost order.
const postColumns = `id, title, content, author_id, author_name, tags, comments, views, created_at, updated_at`

// pPostColumns is postColumns qualified with the "p" alias for joins.
const pPostColumns = `p.id, p.title, p.content, p.author_id, p.author_name, p.tags, p.comments, p.views, p.created_at, p.updated_at`

// commentJSON is how a comment is stored inside posts.comments.
type commentJSON struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new post. The caller sets the timestamps; we assign the ID.
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.Normalize()

	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}
	comments, err := encodeComments(post.Comments)
	if err != nil {
		return err
	}

	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Content,
		post.AuthorID,
		post.AuthorName,
		string(tags),
		comments,
		post.Views,
		post.CreatedAt.UnixNano(),
		post.UpdatedAt.UnixNano(),
	)
	if err != nil {
		post.ID = ""
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetAndIncrementViews bumps views and reads the row back in ONE statement.
//
// UPDATE ... RETURNING gives us the post-increment row. When no row matches,
// nothing was written and Scan reports sql.ErrNoRows.
func (p *PostDB) GetAndIncrementViews(ctx context.Context, id string) (*model.Post, error) {
	row := p.conn.QueryRowContext(ctx,
		`UPDATE posts SET views = views + 1
		 WHERE id = ?
		 RETURNING `+postColumns,
		id,
	)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// Update replaces title, content and tags and refreshes updated_at.
// views, comments, author and created_at are untouched.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	if post.Tags == nil {
		post.Tags = []string{}
	}
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	row := p.conn.QueryRowContext(ctx,
		`UPDATE posts SET title = ?, content = ?, tags = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING `+postColumns,
		post.Title,
		post.Content,
		string(tags),
		post.UpdatedAt.UnixNano(),
		post.ID,
	)
	stored, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("post", post.ID)
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	*post = *stored
	return nil
}

// Delete removes a post. Zero rows affected is the not-found signal.
func (p *PostDB) Delete(ctx context.Context, id string) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

// List returns one page of posts, newest first.
// rowid breaks ties between posts created in the same nanosecond.
func (p *PostDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	return p.queryPosts(ctx, "listing posts",
		`SELECT `+postColumns+` FROM posts
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// Count returns the total number of posts.
func (p *PostDB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// ListByTag returns posts with an element exactly equal to tag (case-sensitive), newest first.
func (p *PostDB) ListByTag(ctx context.Context, tag string) ([]model.Post, error) {
	return p.queryPosts(ctx, "listing posts by tag",
		`SELECT `+postColumns+` FROM posts
		 WHERE EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)
		 ORDER BY created_at DESC, rowid DESC`,
		tag,
	)
}

// SearchText runs a full-text query against title and content.
// Results keep FTS5's relevance order (bm25 rank, best first).
func (p *PostDB) SearchText(ctx context.Context, query string) ([]model.Post, error) {
	match := ftsQuery(query)
	if match == "" {
		return []model.Post{}, nil
	}

	return p.queryPosts(ctx, "searching posts",
		`SELECT `+pPostColumns+`
		 FROM posts_fts
		 JOIN posts p ON p.id = posts_fts.post_id
		 WHERE posts_fts MATCH ?
		 ORDER BY posts_fts.rank`,
		match,
	)
}

// SearchPattern matches pattern against title OR content (case-insensitive
// regex) OR exactly one tag, newest first.
func (p *PostDB) SearchPattern(ctx context.Context, pattern string) ([]model.Post, error) {
	// Compile up front: on an empty table the SQL function never runs, and a
	// bad pattern must fail the same way whether or not there are rows.
	if _, err := compilePattern(pattern); err != nil {
		return nil, fmt.Errorf("sqlite: pattern-searching posts: %w", err)
	}

	return p.queryPosts(ctx, "pattern-searching posts",
		`SELECT `+postColumns+` FROM posts
		 WHERE title REGEXP ?
		    OR content REGEXP ?
		    OR EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)
		 ORDER BY created_at DESC, rowid DESC`,
		pattern, pattern, pattern,
	)
}

// AppendComment pushes a comment onto the post in a single UPDATE.
//
// json_insert with the '$[#]' path appends to the end of the array; the same
// statement moves updated_at forward, so no reader ever sees one change
// without the other. MAX keeps a slower concurrent append from moving it back.
func (p *PostDB) AppendComment(ctx context.Context, postID string, comment *model.Comment) error {
	comment.ID = xid.New().String()

	encoded, err := json.Marshal(commentJSON{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	})
	if err != nil {
		comment.ID = ""
		return fmt.Errorf("sqlite: encoding comment: %w", err)
	}

	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts
		 SET comments = json_insert(comments, '$[#]', json(?)), updated_at = MAX(updated_at, ?)
		 WHERE id = ?`,
		string(encoded),
		comment.CreatedAt.UnixNano(),
		postID,
	)
	if err != nil {
		comment.ID = ""
		return fmt.Errorf("sqlite: appending comment to post %s: %w", postID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		comment.ID = ""
		return apperror.NotFound("post", postID)
	}

	return nil
}

// queryPosts runs a multi-row post query. what names the operation in errors.
func (p *PostDB) queryPosts(ctx context.Context, what, query string, args ...any) ([]model.Post, error) {
	rows, err := p.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", what, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", what, err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", what, err)
	}

	return posts, nil
}

// scanPost reads one row selected with postColumns and decodes the JSON columns.
func scanPost(row rowScanner) (*model.Post, error) {
	var (
		post                 model.Post
		tags, comments       string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&post.AuthorName,
		&tags,
		&comments,
		&post.Views,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of post %s: %w", post.ID, err)
	}

	var stored []commentJSON
	if err := json.Unmarshal([]byte(comments), &stored); err != nil {
		return nil, fmt.Errorf("decoding comments of post %s: %w", post.ID, err)
	}
	post.Comments = make([]model.Comment, len(stored))
	for i, c := range stored {
		post.Comments[i] = model.Comment{
			ID:         c.ID,
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
		}
	}

	post.CreatedAt = fromNanos(createdAt)
	post.UpdatedAt = fromNanos(updatedAt)
	post.Normalize()
	return &post, nil
}

func encodeComments(comments []model.Comment) (string, error) {
	stored := make([]commentJSON, len(comments))
	for i, c := range comments {
		stored[i] = commentJSON{
			ID:         c.ID,
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt,
		}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding comments: %w", err)
	}
	return string(b), nil
}
