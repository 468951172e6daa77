// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE NEXT TO MONGODB?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// It is the zero-infrastructure backend: local development, single-server deployments,
// and tests (":memory:") that exercise real SQL instead of fakes.
//
// MODELLING THE AGGREGATE:
// A post and its comments are one consistency unit. Instead of a separate comments
// table, the row carries its tags and comments as JSON arrays. That keeps the two
// "atomic single-document" operations single statements:
//
//	views++        → UPDATE posts SET views = views + 1 WHERE id = ? RETURNING ...
//	append comment → UPDATE posts SET comments = json_insert(comments, '$[#]', json(?)), ...
//
// SQLite executes each statement atomically, so concurrent requests never lose an update.
//
// SEARCH:
//   - Full-text: an FTS5 table (posts_fts) kept in sync by triggers.
//   - Pattern: SQLite parses `X REGEXP Y` but ships no implementation. We register a
//     Go function named "regexp" (RE2 syntax, case-insensitive) with the driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"

	// The driver registers itself with database/sql as "sqlite" at init time.
	// We also call into it directly to register the regexp SQL function.
	moderncsqlite "modernc.org/sqlite"

	"github.com/sakif/blog-platform/internal/repository"
)

// DB wraps a sql.DB connection pool and hands out the two repositories.
type DB struct {
	conn  *sql.DB
	users *UserDB
	posts *PostDB
}

var _ repository.Store = (*DB)(nil)

var (
	registerOnce sync.Once
	registerErr  error
)

// New opens the database, applies per-connection pragmas and runs migrations.
//
// dbPath examples:
//   - "data/blog.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests; lost on close)
//
// CONNECTION POOL AND ":memory:":
// Every connection to ":memory:" is its own empty database. We pin the pool to a
// single connection in that case so all queries see the same tables.
func New(dbPath string) (*DB, error) {
	registerOnce.Do(func() {
		registerErr = moderncsqlite.RegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
	})
	if registerErr != nil {
		return nil, fmt.Errorf("sqlite: registering regexp function: %w", registerErr)
	}

	inMemory := dbPath == ":memory:"

	dsn := dbPath
	if !inMemory {
		// _pragma parameters run on EVERY new connection in the pool, unlike a
		// one-off `PRAGMA` Exec which only touches whichever connection served it.
		q := url.Values{}
		q.Add("_pragma", "busy_timeout(5000)")
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "foreign_keys(1)")
		dsn = "file:" + dbPath + "?" + q.Encode()
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if inMemory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	db.users = &UserDB{conn: conn}
	db.posts = &PostDB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Users returns the account repository backed by this database.
func (db *DB) Users() repository.UserRepository { return db.users }

// Posts returns the post aggregate repository backed by this database.
func (db *DB) Posts() repository.PostRepository { return db.posts }

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool, flushing the WAL and releasing the file lock.
func (db *DB) Close(_ context.Context) error {
	return db.conn.Close()
}

// migrate creates tables, indexes, the FTS5 index and its sync triggers.
// Every statement is IF NOT EXISTS, so running it on an existing file is a no-op.
//
// Timestamps are INTEGER unix nanoseconds: they sort correctly as numbers and
// scan into int64 regardless of how a statement (e.g. RETURNING) reports column types.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			content     TEXT NOT NULL,
			author_id   TEXT NOT NULL DEFAULT '',
			author_name TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '[]',
			comments    TEXT NOT NULL DEFAULT '[]',
			views       INTEGER NOT NULL DEFAULT 0 CHECK (views >= 0),
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// porter wraps unicode61: case-folding plus English stemming, close to what
	// MongoDB's default text index does with "posts" vs "post".
	_, err = db.conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
			post_id UNINDEXED,
			title,
			content,
			tokenize = 'porter unicode61'
		);

		CREATE TRIGGER IF NOT EXISTS posts_fts_insert AFTER INSERT ON posts BEGIN
			INSERT INTO posts_fts (post_id, title, content) VALUES (new.id, new.title, new.content);
		END;

		CREATE TRIGGER IF NOT EXISTS posts_fts_update AFTER UPDATE OF title, content ON posts BEGIN
			UPDATE posts_fts SET title = new.title, content = new.content WHERE post_id = old.id;
		END;

		CREATE TRIGGER IF NOT EXISTS posts_fts_delete AFTER DELETE ON posts BEGIN
			DELETE FROM posts_fts WHERE post_id = old.id;
		END;
	`)
	if err != nil {
		return fmt.Errorf("creating posts full-text index: %w", err)
	}

	return nil
}

// ftsQuery turns free text into an FTS5 MATCH expression.
//
// Raw user input is not valid FTS5 syntax in general ("c++", "don't", a lone
// quote). We keep only letter/digit runs, quote each one, and OR them together;
// a post matches when it contains any of the terms.
// Returns "" when the input has no searchable terms.
func ftsQuery(text string) string {
	terms := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
