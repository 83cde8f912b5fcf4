package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UserField names a unique column that can be checked with IsTaken.
type UserField string

const (
	UsernameField UserField = "username"
	EmailField    UserField = "email"
)

const userColumns = `id, username, email, password_hash, bio, image_url, created_at, last_seen`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and sets its ID. A taken username or email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastSeen.IsZero() {
		user.LastSeen = now
	}

	query := `INSERT INTO users (username, email, password_hash, bio, image_url, created_at, last_seen)
		VALUES (:username, :email, :password_hash, :bio, :image_url, :created_at, :last_seen)`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to create user %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, column string, value interface{}) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	if err := r.db.GetContext(ctx, &user, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &user, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getBy(ctx, "username", username)
}

// IsTaken reports whether a user already holds value in the given unique field.
// It is advisory only; the UNIQUE constraints are what guarantee uniqueness.
func (r *UserRepository) IsTaken(ctx context.Context, field UserField, value string) (bool, error) {
	if field != UsernameField && field != EmailField {
		return false, fmt.Errorf("field %q is not unique", field)
	}
	var n int
	query := `SELECT COUNT(*) FROM users WHERE ` + string(field) + ` = ?`
	if err := r.db.GetContext(ctx, &n, query, value); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", field, err)
	}
	return n > 0, nil
}

// First returns the earliest registered user.
func (r *UserRepository) First(ctx context.Context) (*User, error) {
	var user User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT 1`
	if err := r.db.GetContext(ctx, &user, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get first user: %w", err)
	}
	return &user, nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// TouchLastSeen records activity for a user.
func (r *UserRepository) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
