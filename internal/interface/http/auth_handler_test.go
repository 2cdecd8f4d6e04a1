package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-auth-service/internal/interface/middleware"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Meta      json.RawMessage `json:"meta"`
	Error     json.RawMessage `json:"error"`
}

type testServer struct {
	engine *gin.Engine
	repo   *memory.UserRepository
	hasher *helpers.BcryptHasher
	jwt    *helpers.JWTManager
}

// newTestServer mounts the handlers the same way the router modules do.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := memory.NewUserRepository()
	hasher := helpers.NewBcryptHasher(bcrypt.MinCost)
	jwt, err := helpers.NewJWTManager("handler-secret", time.Hour, "handler-test")
	require.NoError(t, err)

	authSvc := application.NewAuthService(repo, hasher, jwt, nil, logger)
	userSvc := application.NewUserService(repo, nil, nil, logger)
	ah := NewAuthHandler(authSvc)
	uh := NewUserHandler(userSvc)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(logger))
	api := r.Group("/api")
	api.GET("/health", NewHealthHandler(nil).Health)
	api.POST("/auth/register", ah.Register)
	api.POST("/auth/login", ah.Login)
	api.GET("/auth/me", middleware.Auth(jwt), ah.Me)

	users := api.Group("/users", middleware.Auth(jwt), middleware.RequireRole(authSvc, entity.RoleAdmin))
	users.GET("", uh.List)
	users.GET("/search", uh.Search)
	users.PUT("/:id", uh.Update)
	users.DELETE("/:id", uh.Delete)

	return &testServer{engine: r, repo: repo, hasher: hasher, jwt: jwt}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			rd = bytes.NewBufferString(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			rd = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// seedAdmin stores an ADMIN account directly and returns its token.
func (s *testServer) seedAdmin(t *testing.T) string {
	t.Helper()
	hash, err := s.hasher.Hash("admin-password")
	require.NoError(t, err)
	admin := &entity.User{ID: "admin-1", Email: "root@x.com", Username: "root", PasswordHash: hash, Role: entity.RoleAdmin}
	require.NoError(t, s.repo.Create(context.Background(), admin))
	token, _, err := s.jwt.Issue(admin.ID)
	require.NoError(t, err)
	return token
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "a@x.com", "password": "s3cretpass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Success)
	var reg application.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.NotEmpty(t, reg.Token)
	require.NotNil(t, reg.User)
	assert.Equal(t, entity.RoleUser, reg.User.Role)
	assert.NotContains(t, w.Body.String(), "s3cretpass")

	// same email, different username
	w, env = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "a@x.com", "password": "anotherpass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `"email_taken"`, string(env.Error))

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `"invalid_credentials"`, string(env.Error))

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `"invalid_credentials"`, string(env.Error))

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "A@X.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login application.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &login))
	sub, err := s.jwt.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, sub)

	w, env = s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me entity.UserSummary
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "a@x.com", me.Email)
	assert.NotContains(t, string(env.Data), "password")

	w, env = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `"missing_token"`, string(env.Error))
}

func TestRegister_BadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     any
		wantKeys []string
	}{
		{name: "invalid fields", body: gin.H{"username": "alice", "email": "nope", "password": "short"}, wantKeys: []string{"email", "password"}},
		{name: "missing username", body: gin.H{"email": "a@x.com", "password": "s3cretpass"}, wantKeys: []string{"username"}},
		{name: "malformed json", body: `{"username":`, wantKeys: []string{"payload"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var details map[string]string
			require.NoError(t, json.Unmarshal(env.Error, &details))
			for _, k := range tt.wantKeys {
				assert.Contains(t, details, k)
			}
		})
	}
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.seedAdmin(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "bob", "email": "b@x.com", "password": "bobpassword",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var bob application.AuthResult
	require.NoError(t, json.Unmarshal(env.Data, &bob))

	w, env = s.do(t, http.MethodGet, "/api/users", bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `"forbidden"`, string(env.Error))

	w, env = s.do(t, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []entity.UserSummary
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
	assert.JSONEq(t, `{"count":2}`, string(env.Meta))

	w, env = s.do(t, http.MethodPut, "/api/users/"+bob.User.ID, adminToken, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var upd struct {
		Updated bool               `json:"updated"`
		User    entity.UserSummary `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &upd))
	assert.True(t, upd.Updated)
	assert.Equal(t, entity.RoleAdmin, upd.User.Role)

	// bob's existing token now passes the role check
	w, _ = s.do(t, http.MethodGet, "/api/users", bob.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// password survives the update
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "b@x.com", "password": "bobpassword"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPut, "/api/users/"+bob.User.ID, adminToken, gin.H{"email": "root@x.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `"email_taken"`, string(env.Error))

	w, env = s.do(t, http.MethodPut, "/api/users/"+bob.User.ID, adminToken, gin.H{"role": "OWNER"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Error), "role")

	w, env = s.do(t, http.MethodGet, "/api/users/search?q=bob", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0}`, string(env.Meta))

	w, env = s.do(t, http.MethodDelete, "/api/users/"+bob.User.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":true}`, string(env.Data))

	w, env = s.do(t, http.MethodDelete, "/api/users/"+bob.User.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `"user_not_found"`, string(env.Error))

	// deleted user's token no longer works on guarded routes
	w, env = s.do(t, http.MethodGet, "/api/auth/me", bob.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `"invalid_token"`, string(env.Error))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"ok"}`, string(env.Data))

	down := gin.New()
	down.GET("/health", NewHealthHandler(func(context.Context) error { return errors.New("dial tcp: refused") }).Health)
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "store_unavailable")
	assert.NotContains(t, w.Body.String(), "refused")
}
