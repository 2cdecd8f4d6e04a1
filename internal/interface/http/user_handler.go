package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-auth-service/internal/application"
	"github.com/oksasatya/go-auth-service/pkg/apperror"
	"github.com/oksasatya/go-auth-service/pkg/response"
	"github.com/oksasatya/go-auth-service/pkg/validation"
)

// UserHandler serves the admin user routes.
type UserHandler struct {
	Svc *application.UserService
}

func NewUserHandler(svc *application.UserService) *UserHandler {
	return &UserHandler{Svc: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, users, "users", map[string]any{"count": len(users)})
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	users, err := h.Svc.Search(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, users, "search results", map[string]any{"count": len(users)})
}

func (h *UserHandler) Update(c *gin.Context) {
	var req application.UpdateUserInput
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.Validation(validation.ToDetails(err)))
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true, "user": u}, "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "user deleted", nil)
}
