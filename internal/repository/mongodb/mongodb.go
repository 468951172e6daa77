// Package mongodb implements the repository interfaces on MongoDB.
//
// THE CLIENT LIFECYCLE:
// A *Client is built once in the server wiring and handed to both repositories.
// Nothing talks to the server at construction time. The first repository call
// connects and ensures the indexes; every later call reuses that connection
// pool until Close. If the first attempt fails (server down, bad credentials)
// the next call tries again instead of caching the failure forever.
//
// ATOMICITY:
// MongoDB guarantees single-document atomicity, and a post is one document
// (comments are embedded). The two mutations that must never lose an update
// are therefore single server-side operators:
//
//	views++        → FindOneAndUpdate {$inc: {views: 1}} returning the new document
//	append comment → UpdateOne {$push: {comments: c}, $max: {updatedAt: c.createdAt}}
package mongodb

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/blog-platform/internal/repository"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// Client owns the driver client and the lazily-initialized database handle.
type Client struct {
	uri    string
	dbName string

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database

	users *UserStore
	posts *PostStore
}

var _ repository.Store = (*Client)(nil)

// New prepares a client for uri/dbName. It does not connect.
func New(uri, dbName string) *Client {
	c := &Client{uri: uri, dbName: dbName}
	c.users = &UserStore{client: c}
	c.posts = &PostStore{client: c}
	return c
}

// Users returns the account repository.
func (c *Client) Users() repository.UserRepository { return c.users }

// Posts returns the post aggregate repository.
func (c *Client) Posts() repository.PostRepository { return c.posts }

// database returns the shared handle, connecting on first use.
func (c *Client) database(ctx context.Context) (*mongo.Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(c.uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	db := client.Database(c.dbName)
	if err := ensureIndexes(ctx, db); err != nil {
		// Don't leak the pool of a half-initialized client.
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	c.client = client
	c.db = db
	return db, nil
}

func (c *Client) collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := c.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping checks the server answers. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.database(ctx)
	if err != nil {
		return err
	}
	return db.Client().Ping(ctx, nil)
}

// Close disconnects the pool. A client that never connected has nothing to close.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.db = nil
	return err
}

// ensureIndexes creates the three indexes the queries rely on.
// CreateMany is idempotent for identical definitions.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating users email index: %w", err)
	}

	_, err = db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating posts indexes: %w", err)
	}

	return nil
}
