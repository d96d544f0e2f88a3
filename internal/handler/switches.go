package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"adsoptimizer/internal/service"
)

const switchPrefix = "feature."

type SwitchHandler struct {
	Settings *service.SystemSettingsService
	Auth     gin.HandlerFunc
}

func (h *SwitchHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/switches", withAuth(h.Auth)...)
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.PUT("/:name", h.put)
}

func (h *SwitchHandler) list(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	defaults := service.DefaultFeatureSwitches()
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, switchView(key, h.Settings.IsEnabled(c.Request.Context(), key, defaults[key])))
	}
	Ok(c, out, nil)
}

func (h *SwitchHandler) get(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	key, ok := switchKey(c)
	if !ok {
		return
	}
	fallback, known := service.DefaultFeatureSwitches()[key]
	if !known {
		Error(c, http.StatusNotFound, "switch not found", nil)
		return
	}
	Ok(c, switchView(key, h.Settings.IsEnabled(c.Request.Context(), key, fallback)), nil)
}

type putSwitchRequest struct {
	Enabled bool `json:"enabled"`
}

// @Summary Toggle a feature switch
// @Tags switches
// @Accept json
// @Param name path string true "switch name, e.g. optimization_sweep"
// @Param body body putSwitchRequest true "state"
// @Success 200 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /api/v1/switches/{name} [put]
func (h *SwitchHandler) put(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	if !p.IsAdmin() {
		Error(c, http.StatusForbidden, "admin role required", nil)
		return
	}
	key, ok := switchKey(c)
	if !ok {
		return
	}
	if _, known := service.DefaultFeatureSwitches()[key]; !known {
		Error(c, http.StatusNotFound, "switch not found", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, switchView(key, req.Enabled), nil)
}

func switchKey(c *gin.Context) (string, bool) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return "", false
	}
	return switchPrefix + strings.TrimPrefix(name, switchPrefix), true
}

func switchView(key string, enabled bool) map[string]any {
	return map[string]any{
		"name":    strings.TrimPrefix(key, switchPrefix),
		"key":     key,
		"enabled": enabled,
	}
}
