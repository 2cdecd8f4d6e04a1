package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
)

const CtxUserIDKey = "userID"

// TokenVerifier is satisfied by helpers.JWTManager.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, id application.Identity, required entity.Role) error
}

var (
	errMissingToken = apperror.Unauthorized(apperror.CodeMissingToken, "missing bearer token")
	errInvalidToken = apperror.Unauthorized(apperror.CodeInvalidToken, "invalid or expired token")
)

// Auth validates the bearer token and stores the caller's user ID in the Gin context
// (userID) and in the request context. It never touches the user store.
func Auth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, errMissingToken)
			return
		}
		sub, err := tokens.Verify(token)
		if err != nil {
			abortWithError(c, errInvalidToken)
			return
		}

		c.Set(CtxUserIDKey, sub)
		ctx := application.WithIdentity(c.Request.Context(), application.Identity{UserID: sub})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(authz Authorizer, role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := application.IdentityFrom(c.Request.Context())
		if !ok {
			abortWithError(c, errMissingToken)
			return
		}
		if err := authz.Authorize(c.Request.Context(), id, role); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// bearerToken parses "Bearer <token>"; the scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
