// Package container builds the process-wide components once at startup and hands
// them to the router and commands.
package container

import (
	"context"
	"database/sql"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/config"
	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/cache"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-auth-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/search"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

// Container holds shared clients. Optional integrations stay nil when they are
// not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Pool   *pgxpool.Pool
	DB     *sql.DB
	Redis  *redis.Client
	ES     *elasticsearch.Client
	Rabbit *helpers.RabbitPublisher

	JWT    *helpers.JWTManager
	Hasher helpers.Hasher
	Users  repository.UserRepository
	Index  *search.UserIndex
	Events application.EventPublisher
}

// New connects the configured store and integrations. On error everything
// opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (c *Container, err error) {
	c = &Container{Config: cfg, Logger: logger, Events: application.NopPublisher{}}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	c.JWT, err = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, cfg.AppName)
	if err != nil {
		return c, err
	}
	c.Hasher = helpers.NewBcryptHasher(cfg.BcryptCost)

	switch cfg.StoreDriver {
	case config.StoreMemory:
		c.Users = memory.NewUserRepository()
		logger.Warn("using in-memory user store; data is lost on restart")
	default:
		c.Pool, err = pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return c, errors.Wrap(err, "connect postgres")
		}
		c.DB = pginfra.OpenDB(c.Pool)
		c.Users = pginfra.NewUserRepository(c.DB)
	}

	if cfg.RedisAddr != "" {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if perr := c.Redis.Ping(ctx).Err(); perr != nil {
			logger.WithError(perr).Warn("redis unreachable; user cache will fail open")
		}
		c.Users = cache.NewUserRepository(c.Users, cache.NewRedisStore(c.Redis), cfg.UserCacheTTL, logger)
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		c.ES, err = helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			return c, errors.Wrap(err, "elasticsearch client")
		}
		c.Index = search.NewUserIndex(c.ES, cfg.ESUsersIndex)
	}

	if cfg.EventsEnabled {
		c.Rabbit, err = helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue)
		if err != nil {
			return c, errors.Wrap(err, "connect rabbitmq")
		}
		c.Events = rabbitmq.NewUserEventPublisher(c.Rabbit)
	}
	return c, nil
}

// Searcher returns the user index as an application.UserSearcher, or a nil
// interface when search is not configured.
func (c *Container) Searcher() application.UserSearcher {
	if c.Index == nil {
		return nil
	}
	return c.Index
}

// Ping checks the user store; nil for the memory store.
func (c *Container) Ping() func(ctx context.Context) error {
	if c.Pool == nil {
		return nil
	}
	return c.Pool.Ping
}

func (c *Container) Close() {
	c.Rabbit.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
