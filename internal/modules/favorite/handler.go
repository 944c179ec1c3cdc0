package favorite

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crmnice/internal/domain"
	"crmnice/internal/middleware"
	"crmnice/internal/pkg/render"
	"crmnice/internal/pkg/response"
)

// Handler обрабатывает HTTP запросы для избранного
type Handler struct {
	service *Service
}

// NewHandler создаёт новый handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes регистрирует routes для избранного
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	view := middleware.RequireCapability(domain.CapViewCompanies)

	rg.GET("/favorites/", view, h.List)
	rg.POST("/companies/:id/toggle-favorite/", view, h.Toggle)
}

// List показывает избранные компании текущего пользователя, новые сверху.
func (h *Handler) List(c *gin.Context) {
	viewer := middleware.CurrentIdentity(c)
	view, err := h.service.List(c.Request.Context(), viewer)
	if err != nil {
		response.Internal(c, err)
		return
	}
	render.View(c, http.StatusOK, "favorites/list", view)
}

// Toggle переключает закладку. Ответ - просто "added" или "removed",
// его читает скрипт на странице списка.
func (h *Handler) Toggle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.NotFound(c, "Company")
		return
	}

	viewer := middleware.CurrentIdentity(c)
	result, err := h.service.Toggle(c.Request.Context(), viewer.UserID, id)
	if errors.Is(err, ErrCompanyNotFound) {
		response.NotFound(c, "Company")
		return
	}
	if err != nil {
		response.Internal(c, err)
		return
	}
	c.String(http.StatusOK, string(result))
}
