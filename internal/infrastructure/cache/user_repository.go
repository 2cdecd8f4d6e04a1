// Package cache adds a Redis read-through layer in front of the user store.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

const DefaultTTL = 5 * time.Minute

// Store is the key/value backend holding JSON-encoded entries.
type Store interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore implements Store on a go-redis client.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	return helpers.RedisGetJSON(ctx, s.rdb, key, dest)
}

func (s *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return helpers.RedisSetJSON(ctx, s.rdb, key, value, ttl)
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return helpers.RedisDel(ctx, s.rdb, keys...)
}

// entry is the cached form of a user. The password hash is never written to the cache.
type entry struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Role      entity.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func toEntry(u *entity.User) entry {
	return entry{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (e entry) user() *entity.User {
	return &entity.User{ID: e.ID, Email: e.Email, Username: e.Username, Role: e.Role, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func userKey(id string) string { return "user:profile:" + id }

// UserRepository caches FindByID results and invalidates them on Update and Delete.
// Users returned from the cache carry no PasswordHash, so FindByID must not feed
// password checks. Cache failures are logged and fall through to the wrapped store.
// A read racing an invalidation can repopulate a stale entry until ttl expires;
// role checks and updates read through Uncached instead.
type UserRepository struct {
	repository.UserRepository
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
}

func NewUserRepository(next repository.UserRepository, store Store, ttl time.Duration, logger *logrus.Logger) *UserRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserRepository{UserRepository: next, store: store, ttl: ttl, logger: logger}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	key := userKey(id)
	var e entry
	hit, err := r.store.GetJSON(ctx, key, &e)
	if err != nil {
		r.warn(err, "user cache read failed", key)
	}
	if hit {
		return e.user(), nil
	}

	u, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetJSON(ctx, key, toEntry(u), r.ttl); err != nil {
		r.warn(err, "user cache write failed", key)
	}
	return u, nil
}

// Uncached returns the wrapped store for reads that must not see a stale entry.
func (r *UserRepository) Uncached() repository.UserRepository {
	return r.UserRepository
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	if err := r.UserRepository.Update(ctx, u); err != nil {
		return err
	}
	r.invalidate(ctx, u.ID)
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := r.UserRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *UserRepository) invalidate(ctx context.Context, id string) {
	key := userKey(id)
	if err := r.store.Del(ctx, key); err != nil {
		r.warn(err, "user cache invalidation failed", key)
	}
}

func (r *UserRepository) warn(err error, msg, key string) {
	if r.logger == nil {
		return
	}
	r.logger.WithError(err).WithField("key", key).Warn(msg)
}

var _ repository.UserRepository = (*UserRepository)(nil)
