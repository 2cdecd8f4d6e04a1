package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/event"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

// TokenIssuer signs bearer tokens for a user ID.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,uname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwd"`
}

type AuthResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      *entity.UserSummary `json:"user,omitempty"`
}

// AuthService owns registration, login and role checks. Handlers and middleware
// are thin adapters over it.
type AuthService struct {
	users  repository.UserRepository
	direct repository.UserRepository // bypasses any cache; used for role checks
	hasher helpers.Hasher
	tokens TokenIssuer
	events EventPublisher
	logger *logrus.Logger

	decoyOnce sync.Once
	decoyHash string
}

func NewAuthService(users repository.UserRepository, hasher helpers.Hasher, tokens TokenIssuer, events EventPublisher, logger *logrus.Logger) *AuthService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AuthService{
		users:  users,
		direct: repository.Direct(users),
		hasher: hasher,
		tokens: tokens,
		events: events,
		logger: logger,
	}
}

// Register creates a USER account and returns a token for it.
// Email is checked before username so the reported conflict is deterministic.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	in.Username = entity.NormalizeUsername(in.Username)
	if err := validation.Struct(in); err != nil {
		return AuthResult{}, apperror.Validation(validation.ToDetails(err))
	}

	if err := s.ensureFree(ctx, s.users.FindByEmail, in.Email, errEmailTaken); err != nil {
		return AuthResult{}, err
	}
	if err := s.ensureFree(ctx, s.users.FindByUsername, in.Username, errUsernameTaken); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, apperror.Internal(err)
	}
	u := &entity.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         entity.RoleUser,
	}
	// a concurrent registration can still win between the lookups and the insert
	if err := s.users.Create(ctx, u); err != nil {
		return AuthResult{}, storeError(err)
	}

	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return AuthResult{}, apperror.Internal(err)
	}

	helpers.LogInfo(s.logger, "user registered", logrus.Fields{"user_id": u.ID})
	publish(ctx, s.events, s.logger, event.New(event.UserRegistered, u))

	summary := u.Summary()
	return AuthResult{Token: token, ExpiresAt: exp, User: &summary}, nil
}

func (s *AuthService) ensureFree(ctx context.Context, find func(context.Context, string) (*entity.User, error), key string, taken error) error {
	_, err := find(ctx, key)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperror.Internal(err)
	}
}

// Login returns the same invalid_credentials error for empty input, unknown email
// and wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = entity.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, errInvalidCredentials
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep unknown emails as slow as wrong passwords
			s.hasher.Verify(password, s.decoy())
			return AuthResult{}, errInvalidCredentials
		}
		return AuthResult{}, apperror.Internal(err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return AuthResult{}, errInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return AuthResult{}, apperror.Internal(err)
	}
	return AuthResult{Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.decoyHash
}

// Me loads the caller's public profile. A user deleted after the token was issued
// is treated as an invalid token.
func (s *AuthService) Me(ctx context.Context, userID string) (entity.UserSummary, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.UserSummary{}, errInvalidToken
		}
		return entity.UserSummary{}, apperror.Internal(err)
	}
	return u.Summary(), nil
}

// Authorize checks that the identity holds required. The role is loaded from the
// store, never the cache, when the identity does not carry one.
func (s *AuthService) Authorize(ctx context.Context, id Identity, required entity.Role) error {
	role := id.Role
	if role == "" {
		u, err := s.direct.FindByID(ctx, id.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errInvalidToken
			}
			return apperror.Internal(err)
		}
		role = u.Role
	}
	if role != required {
		return apperror.Forbidden("insufficient role")
	}
	return nil
}
