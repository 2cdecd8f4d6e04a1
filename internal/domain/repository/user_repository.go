package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already exists")
	ErrUsernameTaken = errors.New("username already exists")
)

// UserRepository defines the interface for user-related database operations.
// Uniqueness of email and username is enforced here, so concurrent creates
// with the same email surface as ErrEmailTaken. Update writes email, username and
// role only; the password hash is set once at Create. Any other error is a store failure.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entity.User, error)
}

// Uncacher is implemented by caching decorators. Uncached returns the store they wrap.
type Uncacher interface {
	Uncached() UserRepository
}

// Direct returns the store behind a caching decorator, or users itself.
func Direct(users UserRepository) UserRepository {
	if c, ok := users.(Uncacher); ok {
		return c.Uncached()
	}
	return users
}
