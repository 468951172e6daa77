package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/sakif/blog-platform/internal/model"
)

// Stored document shapes. Field names match the collections the UI-era
// service wrote, so an existing database keeps working.

type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Name      string        `bson:"name"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password,omitempty"` // bcrypt hash
	CreatedAt time.Time     `bson:"createdAt"`
}

type postDoc struct {
	ID         bson.ObjectID  `bson:"_id,omitempty"`
	Title      string         `bson:"title"`
	Content    string         `bson:"content"`
	AuthorID   *bson.ObjectID `bson:"authorId,omitempty"`
	AuthorName string         `bson:"authorName,omitempty"`
	Tags       []string       `bson:"tags"`
	Comments   []commentDoc   `bson:"comments"`
	Views      int64          `bson:"views"`
	CreatedAt  time.Time      `bson:"createdAt"`
	UpdatedAt  time.Time      `bson:"updatedAt"`
}

type commentDoc struct {
	ID         bson.ObjectID  `bson:"_id"`
	AuthorID   *bson.ObjectID `bson:"authorId,omitempty"`
	AuthorName string         `bson:"authorName"`
	Content    string         `bson:"content"`
	CreatedAt  time.Time      `bson:"createdAt"`
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func (d *postDoc) toModel() *model.Post {
	post := &model.Post{
		ID:         d.ID.Hex(),
		Title:      d.Title,
		Content:    d.Content,
		AuthorName: d.AuthorName,
		Tags:       d.Tags,
		Comments:   make([]model.Comment, len(d.Comments)),
		Views:      d.Views,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
	if d.AuthorID != nil {
		post.AuthorID = d.AuthorID.Hex()
	}
	for i := range d.Comments {
		post.Comments[i] = d.Comments[i].toModel()
	}
	post.Normalize()
	return post
}

func (d *commentDoc) toModel() model.Comment {
	c := model.Comment{
		ID:         d.ID.Hex(),
		AuthorName: d.AuthorName,
		Content:    d.Content,
		CreatedAt:  d.CreatedAt.UTC(),
	}
	if d.AuthorID != nil {
		c.AuthorID = d.AuthorID.Hex()
	}
	return c
}

// optionalObjectID converts a hex reference; empty or malformed becomes nil.
func optionalObjectID(hex string) *bson.ObjectID {
	if hex == "" {
		return nil
	}
	oid, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}

// toMillis truncates t to what a BSON datetime can hold, so the value the
// caller keeps equals the value a later read returns.
func toMillis(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func decodePosts(docs []postDoc) []model.Post {
	posts := make([]model.Post, len(docs))
	for i := range docs {
		posts[i] = *docs[i].toModel()
	}
	return posts
}
