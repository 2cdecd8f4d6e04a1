package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-auth-service/internal/interface/http"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
)

// AuthModule serves registration, login and the caller's profile.
// Public: POST /auth/register, POST /auth/login
// Protected: GET /auth/me
type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  middleware.TokenVerifier
}

func NewAuthModule(h *handlers.AuthHandler, tokens middleware.TokenVerifier) *AuthModule {
	return &AuthModule{Handler: h, Tokens: tokens}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", m.Handler.Register)
	auth.POST("/login", m.Handler.Login)
	auth.GET("/me", middleware.Auth(m.Tokens), m.Handler.Me)
}
