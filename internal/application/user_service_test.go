package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/event"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q string, size int) ([]entity.UserSummary, error) {
	args := m.Called(ctx, q, size)
	res, _ := args.Get(0).([]entity.UserSummary)
	return res, args.Error(1)
}

func ptr(s string) *string { return &s }

func seedUsers(t *testing.T, repo *memory.UserRepository) (*entity.User, *entity.User) {
	t.Helper()
	ctx := context.Background()
	a := &entity.User{ID: "u1", Email: "a@x.com", Username: "alice", PasswordHash: "h1", Role: entity.RoleAdmin}
	b := &entity.User{ID: "u2", Email: "b@x.com", Username: "bob", PasswordHash: "h2", Role: entity.RoleUser}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	return a, b
}

func TestUserService_UpdateIgnoresStaleCache(t *testing.T) {
	repo := memory.NewUserRepository()
	_, bob := seedUsers(t, repo)
	stale := *bob
	stale.Role = entity.RoleAdmin
	stale.Username = "bobby"

	svc := NewUserService(newStaleCache(repo, &stale), nil, nil, nil)
	got, err := svc.Update(context.Background(), bob.ID, UpdateUserInput{Email: ptr("bob@new.com")})
	require.NoError(t, err)
	assert.Equal(t, "bob@new.com", got.Email)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, entity.RoleUser, got.Role)

	stored, err := repo.FindByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, stored.Role)
}

func TestUserService_List(t *testing.T) {
	repo := memory.NewUserRepository()
	svc := NewUserService(repo, nil, nil, nil)

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	seedUsers(t, repo)
	users, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update", func(t *testing.T) {
		repo := memory.NewUserRepository()
		pub := &MockPublisher{}
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e event.UserEvent) bool {
			return e.Type == event.UserUpdated && e.UserID == "u2"
		})).Return(nil).Once()
		svc := NewUserService(repo, nil, pub, nil)
		seedUsers(t, repo)

		got, err := svc.Update(ctx, "u2", UpdateUserInput{Role: ptr("admin"), Email: ptr(" Bob@X.com ")})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleAdmin, got.Role)
		assert.Equal(t, "bob@x.com", got.Email)
		assert.Equal(t, "bob", got.Username)

		stored, err := repo.FindByID(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "h2", stored.PasswordHash)
		pub.AssertExpectations(t)
	})

	t.Run("errors", func(t *testing.T) {
		repo := memory.NewUserRepository()
		svc := NewUserService(repo, nil, nil, nil)
		seedUsers(t, repo)

		_, err := svc.Update(ctx, "missing", UpdateUserInput{Username: ptr("carol")})
		assert.Equal(t, apperror.CodeUserNotFound, apperror.As(err).Code)
		assert.Equal(t, 404, apperror.As(err).Status())

		_, err = svc.Update(ctx, "u2", UpdateUserInput{Email: ptr("a@x.com")})
		assert.Equal(t, apperror.CodeEmailTaken, apperror.As(err).Code)

		_, err = svc.Update(ctx, "u2", UpdateUserInput{Username: ptr("alice")})
		assert.Equal(t, apperror.CodeUsernameTaken, apperror.As(err).Code)

		_, err = svc.Update(ctx, "u2", UpdateUserInput{Role: ptr("root"), Email: ptr("nope")})
		ae := apperror.As(err)
		require.Equal(t, apperror.KindValidation, ae.Kind)
		assert.Equal(t, "must be one of: USER, ADMIN", ae.Details["role"])
		assert.Equal(t, "must be a valid email", ae.Details["email"])

		_, err = svc.Update(ctx, "u2", UpdateUserInput{Username: ptr("  ")})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUserRepository()
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e event.UserEvent) bool {
		return e.Type == event.UserDeleted && e.UserID == "u1"
	})).Return(nil).Once()
	svc := NewUserService(repo, nil, pub, nil)
	seedUsers(t, repo)

	require.NoError(t, svc.Delete(ctx, "u1"))
	err := svc.Delete(ctx, "u1")
	assert.Equal(t, apperror.CodeUserNotFound, apperror.As(err).Code)
	pub.AssertExpectations(t)
}

func TestUserService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		svc := NewUserService(memory.NewUserRepository(), nil, nil, nil)
		res, err := svc.Search(ctx, "alice", 5)
		require.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	})

	t.Run("clamps size", func(t *testing.T) {
		s := &MockSearcher{}
		hit := []entity.UserSummary{{ID: "u1", Username: "alice"}}
		s.On("Search", mock.Anything, "alice", MaxSearchSize).Return(hit, nil).Once()
		s.On("Search", mock.Anything, "alice", DefaultSearchSize).Return(nil, nil).Once()
		svc := NewUserService(memory.NewUserRepository(), s, nil, nil)

		res, err := svc.Search(ctx, " alice ", 500)
		require.NoError(t, err)
		assert.Equal(t, hit, res)

		res, err = svc.Search(ctx, "alice", 0)
		require.NoError(t, err)
		assert.NotNil(t, res)
		s.AssertExpectations(t)
	})

	t.Run("blank query skips the index", func(t *testing.T) {
		s := &MockSearcher{}
		svc := NewUserService(memory.NewUserRepository(), s, nil, nil)
		res, err := svc.Search(ctx, "  ", 10)
		require.NoError(t, err)
		assert.Empty(t, res)
		s.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("index failure is internal", func(t *testing.T) {
		s := &MockSearcher{}
		s.On("Search", mock.Anything, "alice", 10).Return(nil, errors.New("es down"))
		svc := NewUserService(memory.NewUserRepository(), s, nil, nil)
		_, err := svc.Search(ctx, "alice", 10)
		assert.True(t, apperror.Is(err, apperror.KindInternal))
	})
}

func TestClampSearchSize(t *testing.T) {
	assert.Equal(t, DefaultSearchSize, ClampSearchSize(-1))
	assert.Equal(t, 1, ClampSearchSize(1))
	assert.Equal(t, MaxSearchSize, ClampSearchSize(51))
}
