package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// liveUserColumns never includes the password hash.
const liveUserColumns = `id, fullName, email, userType, createdAt`

// Create inserts a new user and sets user.ID from the generated rowid.
//
// The partial unique index on email (WHERE deletedAt IS NULL) is the
// authoritative uniqueness guard; a violation comes back as
// repository.ErrEmailTaken.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	conn, err := db.handle()
	if err != nil {
		return err
	}

	res, err := conn.ExecContext(ctx,
		`INSERT INTO users (fullName, email, password, userType, createdAt)
		 VALUES (?, ?, ?, ?, ?)`,
		user.FullName,
		user.Email,
		user.PasswordHash,
		string(user.UserType),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	id, err := res.LastInsertId()
	if err != nil || id <= 0 {
		return apperror.Server("failed to create user", err)
	}
	user.ID = id

	return nil
}

// ExistsByEmail reports whether a live user owns email.
func (db *DB) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	conn, err := db.handle()
	if err != nil {
		return false, err
	}

	var id int64
	err = conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ? AND deletedAt IS NULL`, email,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: looking up email %s: %w", email, err)
	}
	return true, nil
}

// GetByID returns the live user with the given id, or (nil, nil).
func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	conn, err := db.handle()
	if err != nil {
		return nil, err
	}

	var u model.User
	var userType string
	err = conn.QueryRowContext(ctx,
		`SELECT `+liveUserColumns+` FROM users WHERE id = ? AND deletedAt IS NULL`, id,
	).Scan(&u.ID, &u.FullName, &u.Email, &userType, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	u.UserType = model.UserType(userType)

	return &u, nil
}

// GetByEmail returns the live user with the given email including the
// password hash, or (nil, nil).
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	conn, err := db.handle()
	if err != nil {
		return nil, err
	}

	var u model.User
	var userType string
	err = conn.QueryRowContext(ctx,
		`SELECT `+liveUserColumns+`, password FROM users WHERE email = ? AND deletedAt IS NULL`, email,
	).Scan(&u.ID, &u.FullName, &u.Email, &userType, &u.CreatedAt, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	u.UserType = model.UserType(userType)

	return &u, nil
}

// SoftDelete stamps deletedAt on the live row with the given id.
// The deletedAt IS NULL guard makes a concurrent second delete a no-op.
func (db *DB) SoftDelete(ctx context.Context, id int64, deletedAt string) (bool, error) {
	conn, err := db.handle()
	if err != nil {
		return false, err
	}

	res, err := conn.ExecContext(ctx,
		`UPDATE users SET deletedAt = ? WHERE id = ? AND deletedAt IS NULL`,
		deletedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: soft-deleting user %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: soft-deleting user %d: %w", id, err)
	}
	return n > 0, nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// CHECK and NOT NULL failures share the primary SQLITE_CONSTRAINT code, so
// the primary-code fallback also requires the UNIQUE wording.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
