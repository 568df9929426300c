// Package repository declares the storage contracts the service layer
// depends on. Implementations live in sub-packages (see repository/sqlite).
package repository

import (
	"context"
	"errors"

	"github.com/sakif/user-service/internal/model"
)

// ErrEmailTaken is returned by UserRepository.Create when a live user
// already owns the email. Implementations must detect this at the storage
// level so concurrent creates cannot both succeed.
var ErrEmailTaken = errors.New("repository: email already in use")

// UserRepository is the persistence contract for users.
//
// Lookups only ever see live rows (deletedAt IS NULL). A missing row is
// reported as (nil, nil), not as an error.
type UserRepository interface {
	// Create inserts user and sets user.ID. PasswordHash must already be set.
	Create(ctx context.Context, user *model.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail returns the live user including PasswordHash.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// SoftDelete stamps deletedAt on a live row. It reports false if no
	// live row with that id existed.
	SoftDelete(ctx context.Context, id int64, deletedAt string) (bool, error)
	Ping(ctx context.Context) error
}
