package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phytul/nightingale-platform/internal/services"
	"github.com/phytul/nightingale-platform/pkg/response"
)

const (
	defaultListPage    = 1
	defaultListPerPage = 20
)

// UsersHandler exposes the member directory.
type UsersHandler struct {
	users *services.UserService
}

func NewUsersHandler(users *services.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// GET /api/users
func (h *UsersHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", defaultListPage)
	if page <= 0 {
		page = defaultListPage
	}
	perPage := parseIntQuery(c, "per_page", defaultListPerPage)
	if perPage <= 0 || perPage > 200 {
		perPage = defaultListPerPage
	}

	users, total, err := h.users.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, gin.H{"users": users}, response.NewMeta(page, perPage, total))
}
