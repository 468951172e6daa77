package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// UserDB is the users table.
type UserDB struct {
	conn *sql.DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// Create inserts a new user. The UNIQUE constraint on email is the only
// uniqueness check: there is no SELECT-then-INSERT race to lose.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		user.ID = ""
		if isUniqueViolation(err) {
			return apperror.Duplicate("user", "email")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID. The returned user has no PasswordHash.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	user.CreatedAt = fromNanos(createdAt)
	return &user, nil
}

// GetByEmail retrieves a user, credential hash included, by exact email.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	user.CreatedAt = fromNanos(createdAt)
	return &user, nil
}

// List returns every user in insertion order, without credential hashes.
func (u *UserDB) List(ctx context.Context) ([]model.User, error) {
	rows, err := u.conn.QueryContext(ctx,
		`SELECT id, name, email, created_at FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			user      model.User
			createdAt int64
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		user.CreatedAt = fromNanos(createdAt)
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The driver's extended result code is authoritative; the message check
// covers errors that reach us wrapped without the typed error.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
