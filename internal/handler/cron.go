package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adsoptimizer/internal/auth"
	"adsoptimizer/internal/optimization"
	"adsoptimizer/internal/service"
)

// CronHandler lets an external scheduler trigger the optimization sweep.
type CronHandler struct {
	Engine   *optimization.Engine
	Settings *service.SystemSettingsService
	Secret   string
	Logger   *zap.Logger
}

func (h *CronHandler) Register(r *gin.Engine) {
	r.GET("/api/cron/optimization", auth.SharedSecret(h.Secret), h.runSweep)
}

// @Summary Run due optimization rules
// @Tags cron
// @Param Authorization header string true "Bearer <cron secret>"
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/cron/optimization [get]
func (h *CronHandler) runSweep(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	// a disconnecting caller must not cut a rule off mid-run
	ctx := context.WithoutCancel(c.Request.Context())
	if h.Settings != nil && !h.Settings.IsEnabled(ctx, service.FeatureOptimizationSweep, true) {
		Ok(c, gin.H{"skipped": true}, nil)
		return
	}
	report, err := h.Engine.RunScheduledRules(ctx)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("cron route sweep failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, report, nil)
}
