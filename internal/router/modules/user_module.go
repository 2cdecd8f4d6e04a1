package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
)

// UserModule serves the admin user routes. Every route requires an ADMIN token.
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  middleware.TokenVerifier
	Authz   middleware.Authorizer
}

func NewUserModule(h *handlers.UserHandler, tokens middleware.TokenVerifier, authz middleware.Authorizer) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens, Authz: authz}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.Tokens), middleware.RequireRole(m.Authz, entity.RoleAdmin))
	{
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
