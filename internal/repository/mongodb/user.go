package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// UserStore is the users collection.
type UserStore struct {
	client *Client
}

var _ repository.UserRepository = (*UserStore)(nil)

// Create inserts the user. The unique email index rejects duplicates.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	coll, err := s.client.collection(ctx, usersCollection)
	if err != nil {
		return err
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.CreatedAt = toMillis(user.CreatedAt)

	doc := userDoc{
		ID:        bson.NewObjectID(),
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		CreatedAt: user.CreatedAt,
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Duplicate("user", "email")
		}
		return fmt.Errorf("mongodb: inserting user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return nil
}

// GetByID finds a user by hex ObjectID. A malformed id cannot match anything.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("user", id)
	}

	coll, err := s.client.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = coll.FindOne(ctx, idFilter(oid), options.FindOne().SetProjection(withoutPassword)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("mongodb: getting user %s: %w", id, err)
	}
	return doc.toModel(), nil
}

// GetByEmail is the login lookup, so it keeps the password hash.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	coll, err := s.client.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("mongodb: getting user by email: %w", err)
	}
	return doc.toModel(), nil
}

// List returns every user in natural order, hashes projected out.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	coll, err := s.client.collection(ctx, usersCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetProjection(withoutPassword))
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decoding users: %w", err)
	}

	users := make([]model.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toModel()
	}
	return users, nil
}
