package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// PostStore is the posts collection; one document per aggregate.
type PostStore struct {
	client *Client
}

var _ repository.PostRepository = (*PostStore)(nil)

func (s *PostStore) Create(ctx context.Context, post *model.Post) error {
	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return err
	}

	post.Normalize()
	post.CreatedAt = toMillis(post.CreatedAt)
	post.UpdatedAt = toMillis(post.UpdatedAt)

	doc := postDoc{
		ID:         bson.NewObjectID(),
		Title:      post.Title,
		Content:    post.Content,
		AuthorID:   optionalObjectID(post.AuthorID),
		AuthorName: post.AuthorName,
		Tags:       post.Tags,
		Comments:   []commentDoc{},
		Views:      post.Views,
		CreatedAt:  post.CreatedAt,
		UpdatedAt:  post.UpdatedAt,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongodb: inserting post: %w", err)
	}

	post.ID = doc.ID.Hex()
	return nil
}

// GetAndIncrementViews is a single FindOneAndUpdate: the filter misses when
// the post is absent, so there is no orphaned increment.
func (s *PostStore) GetAndIncrementViews(ctx context.Context, id string) (*model.Post, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("post", id)
	}

	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return nil, err
	}

	var doc postDoc
	err = coll.FindOneAndUpdate(ctx,
		idFilter(oid),
		incrementViewsUpdate(),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("mongodb: getting post %s: %w", id, err)
	}
	return doc.toModel(), nil
}

func (s *PostStore) Update(ctx context.Context, post *model.Post) error {
	oid, err := bson.ObjectIDFromHex(post.ID)
	if err != nil {
		return apperror.NotFound("post", post.ID)
	}

	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return err
	}

	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	var doc postDoc
	err = coll.FindOneAndUpdate(ctx,
		idFilter(oid),
		replaceContentUpdate(post.Title, post.Content, tags, toMillis(post.UpdatedAt)),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("post", post.ID)
		}
		return fmt.Errorf("mongodb: updating post %s: %w", post.ID, err)
	}

	*post = *doc.toModel()
	return nil
}

func (s *PostStore) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return apperror.NotFound("post", id)
	}

	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return err
	}

	result, err := coll.DeleteOne(ctx, idFilter(oid))
	if err != nil {
		return fmt.Errorf("mongodb: deleting post %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

func (s *PostStore) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := max(opts.Offset, 0)

	return s.find(ctx, "listing posts", bson.M{},
		options.Find().
			SetSort(newestFirst).
			SetSkip(int64(offset)).
			SetLimit(int64(limit)),
	)
}

func (s *PostStore) Count(ctx context.Context) (int64, error) {
	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return 0, err
	}

	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("mongodb: counting posts: %w", err)
	}
	return n, nil
}

func (s *PostStore) ListByTag(ctx context.Context, tag string) ([]model.Post, error) {
	return s.find(ctx, "listing posts by tag", tagFilter(tag), options.Find().SetSort(newestFirst))
}

// SearchText imposes no sort: results come back in the server's order.
func (s *PostStore) SearchText(ctx context.Context, query string) ([]model.Post, error) {
	return s.find(ctx, "searching posts", textFilter(query), options.Find())
}

func (s *PostStore) SearchPattern(ctx context.Context, pattern string) ([]model.Post, error) {
	return s.find(ctx, "pattern-searching posts", patternFilter(pattern), options.Find().SetSort(newestFirst))
}

func (s *PostStore) AppendComment(ctx context.Context, postID string, comment *model.Comment) error {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return apperror.NotFound("post", postID)
	}

	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return err
	}

	comment.CreatedAt = toMillis(comment.CreatedAt)
	doc := commentDoc{
		ID:         bson.NewObjectID(),
		AuthorID:   optionalObjectID(comment.AuthorID),
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	}

	result, err := coll.UpdateOne(ctx, idFilter(oid), appendCommentUpdate(doc))
	if err != nil {
		return fmt.Errorf("mongodb: appending comment to post %s: %w", postID, err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("post", postID)
	}

	comment.ID = doc.ID.Hex()
	return nil
}

func (s *PostStore) find(ctx context.Context, what string, filter bson.M, opts *options.FindOptionsBuilder) ([]model.Post, error) {
	coll, err := s.client.collection(ctx, postsCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %s: %w", what, err)
	}

	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: %s: %w", what, err)
	}
	return decodePosts(docs), nil
}
