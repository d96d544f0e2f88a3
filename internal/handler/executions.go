package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adsoptimizer/internal/repository"
)

type ExecutionHandler struct {
	Repo repository.Repository
	Auth gin.HandlerFunc
}

func (h *ExecutionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/executions", withAuth(h.Auth)...)
	g.GET("/:id", h.get)
}

// @Summary Get an execution log
// @Tags executions
// @Param id path string true "execution log id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/executions/{id} [get]
func (h *ExecutionHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	ctx := c.Request.Context()
	item, err := h.Repo.GetExecutionLogByID(ctx, id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "execution not found", nil)
		return
	}
	if !p.IsAdmin() {
		// ownership follows the connection so logs of deleted rules stay visible
		conn, err := h.Repo.GetConnectionByID(ctx, item.ConnectionID)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		if conn == nil || !p.CanAccess(conn.UserID) {
			Error(c, http.StatusNotFound, "execution not found", nil)
			return
		}
	}
	Ok(c, item, nil)
}
