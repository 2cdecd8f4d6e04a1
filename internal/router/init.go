package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/container"
	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/internal/router/modules"
)

// NewEngine builds the gin engine with global middleware and every module mounted.
func NewEngine(c *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if c.Config.HTTPLogEnabled {
		r.Use(middleware.RequestLogger(c.Logger))
	}
	r.Use(middleware.Recovery(c.Logger))
	if origins := c.Config.CORSOrigins(); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Use(middleware.ErrorHandler(c.Logger))

	reg := NewRegistry(r)
	InitModules(reg, c)
	reg.RegisterAll()
	return r
}

// InitModules builds the services from the container and queues their modules.
func InitModules(r *Registry, c *container.Container) {
	authSvc := application.NewAuthService(c.Users, c.Hasher, c.JWT, c.Events, c.Logger)
	userSvc := application.NewUserService(c.Users, c.Searcher(), c.Events, c.Logger)

	r.Add(
		modules.NewHealthModule(handlers.NewHealthHandler(c.Ping())),
		modules.NewAuthModule(handlers.NewAuthHandler(authSvc), c.JWT),
		modules.NewUserModule(handlers.NewUserHandler(userSvc), c.JWT, authSvc),
	)
	if c.Config.DebugMetricsEnabled {
		r.AddRoot(modules.NewDebugModule())
	}
}
