package model

import "time"

// Post is the aggregate root: a post together with its embedded comments.
//
// AuthorName is copied from the User at creation time (denormalized) and is
// never refreshed afterwards, so renaming a user does not rewrite old posts.
// Both author fields are empty for anonymous posts.
//
// Views only ever grows. Every mutation of the content (edit, new comment)
// refreshes UpdatedAt; a view increment does not.
type Post struct {
	ID         string    `json:"_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId,omitempty"`
	AuthorName string    `json:"authorName,omitempty"`
	Tags       []string  `json:"tags"`
	Comments   []Comment `json:"comments"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Comment lives only inside its parent Post. Its ID is unique within the
// post's comment sequence; there is no way to fetch a comment on its own.
type Comment struct {
	ID         string    `json:"_id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PostPage is one page of the newest-first post listing.
type PostPage struct {
	Posts      []Post `json:"posts"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	TotalPosts int64  `json:"totalPosts"`
}

// Normalize replaces nil slices with empty ones so the JSON payload always
// carries [] rather than null for tags and comments.
func (p *Post) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}
