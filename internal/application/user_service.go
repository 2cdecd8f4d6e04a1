package application

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/event"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

const (
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// UserSearcher is the full-text user index.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]entity.UserSummary, error)
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Username *string `json:"username" validate:"omitnil,uname"`
	Email    *string `json:"email" validate:"omitnil,email"`
	Role     *string `json:"role" validate:"omitnil,role"`
}

// UserService backs the admin user routes.
type UserService struct {
	users  repository.UserRepository
	direct repository.UserRepository
	search UserSearcher
	events EventPublisher
	logger *logrus.Logger
}

// NewUserService builds the service. search may be nil when no index is configured.
func NewUserService(users repository.UserRepository, search UserSearcher, events EventPublisher, logger *logrus.Logger) *UserService {
	if events == nil {
		events = NopPublisher{}
	}
	return &UserService{users: users, direct: repository.Direct(users), search: search, events: events, logger: logger}
}

func (s *UserService) List(ctx context.Context) ([]entity.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make([]entity.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (entity.UserSummary, error) {
	normalizeUpdate(&in)
	if err := validation.Struct(in); err != nil {
		return entity.UserSummary{}, apperror.Validation(validation.ToDetails(err))
	}

	// read uncached so a stale entry cannot revert fields this update leaves alone
	u, err := s.direct.FindByID(ctx, id)
	if err != nil {
		return entity.UserSummary{}, storeError(err)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.Role != nil {
		u.Role = entity.Role(*in.Role)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return entity.UserSummary{}, storeError(err)
	}

	helpers.LogInfo(s.logger, "user updated", logrus.Fields{"user_id": u.ID})
	publish(ctx, s.events, s.logger, event.New(event.UserUpdated, u))
	return u.Summary(), nil
}

func normalizeUpdate(in *UpdateUserInput) {
	if in.Email != nil {
		v := entity.NormalizeEmail(*in.Email)
		in.Email = &v
	}
	if in.Username != nil {
		v := entity.NormalizeUsername(*in.Username)
		in.Username = &v
	}
	if in.Role != nil {
		v := strings.ToUpper(strings.TrimSpace(*in.Role))
		in.Role = &v
	}
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	helpers.LogInfo(s.logger, "user deleted", logrus.Fields{"user_id": id})
	publish(ctx, s.events, s.logger, event.Deleted(id))
	return nil
}

// Search queries the user index. It returns an empty list for a blank query or
// when no index is configured.
func (s *UserService) Search(ctx context.Context, q string, size int) ([]entity.UserSummary, error) {
	q = strings.TrimSpace(q)
	if s.search == nil || q == "" {
		return []entity.UserSummary{}, nil
	}
	res, err := s.search.Search(ctx, q, ClampSearchSize(size))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if res == nil {
		res = []entity.UserSummary{}
	}
	return res, nil
}

func ClampSearchSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSearchSize
	case size > MaxSearchSize:
		return MaxSearchSize
	default:
		return size
	}
}
