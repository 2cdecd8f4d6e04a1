package application

import (
	"errors"

	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
)

var (
	errEmailTaken         = apperror.Conflict(apperror.CodeEmailTaken, "email already registered")
	errUsernameTaken      = apperror.Conflict(apperror.CodeUsernameTaken, "username already taken")
	errInvalidCredentials = apperror.Unauthorized(apperror.CodeInvalidCredentials, "invalid email or password")
	errInvalidToken       = apperror.Unauthorized(apperror.CodeInvalidToken, "invalid or expired token")
	errUserNotFound       = apperror.NotFound(apperror.CodeUserNotFound, "user not found")
)

// storeError classifies a repository error.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return errEmailTaken
	case errors.Is(err, repository.ErrUsernameTaken):
		return errUsernameTaken
	case errors.Is(err, repository.ErrNotFound):
		return errUserNotFound
	default:
		return apperror.Internal(err)
	}
}
