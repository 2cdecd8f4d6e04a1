package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
	"github.com/oksasatya/go-auth-service/pkg/response"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

type AuthHandler struct {
	Svc *application.AuthService
}

func NewAuthHandler(svc *application.AuthService) *AuthHandler {
	return &AuthHandler{Svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req application.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation(validation.ToDetails(err)))
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, res, "registration successful", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation(validation.ToDetails(err)))
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, res, "login successful", nil)
}

// Me GET /api/auth/me (auth required)
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := application.IdentityFrom(c.Request.Context())
	if !ok {
		_ = c.Error(apperror.Unauthorized(apperror.CodeMissingToken, "missing bearer token"))
		return
	}
	me, err := h.Svc.Me(c.Request.Context(), id.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, me, "profile", nil)
}
