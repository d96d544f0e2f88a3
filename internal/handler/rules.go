package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"adsoptimizer/internal/auth"
	"adsoptimizer/internal/models"
	"adsoptimizer/internal/optimization"
	"adsoptimizer/internal/repository"
	"adsoptimizer/internal/service"
)

type RuleHandler struct {
	Repo     repository.Repository
	Engine   *optimization.Engine
	Settings *service.SystemSettingsService
	Auth     gin.HandlerFunc
	Location *time.Location
	Logger   *zap.Logger
}

func (h *RuleHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/rules", withAuth(h.Auth)...)
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/execute", h.execute)
	g.GET("/:id/executions", h.listExecutions)
}

// @Summary List optimization rules
// @Tags rules
// @Param connection_id query int false "connection id"
// @Param brand_id query int false "brand id"
// @Param enabled query bool false "enabled filter"
// @Param rule_type query string false "BID_ADJUSTMENT|KEYWORD_AUTOMATION|BUDGET_CONTROL|NEGATIVE_KEYWORD"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/rules [get]
func (h *RuleHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListRulesParams{
		Limit:        limit,
		Offset:       offset,
		ConnectionID: uint64QueryPtr(c, "connection_id"),
		BrandID:      uint64QueryPtr(c, "brand_id"),
		Enabled:      boolQueryPtr(c, "enabled"),
		RuleType:     strQueryPtr(c, "rule_type"),
	}
	if !p.IsAdmin() {
		params.UserID = &p.UserID
	} else if userID := uint64QueryPtr(c, "user_id"); userID != nil {
		params.UserID = userID
	}
	items, err := h.Repo.ListRules(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountRules(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type createRuleRequest struct {
	Name         string          `json:"name"`
	ConnectionID uint64          `json:"connection_id"`
	BrandID      *uint64         `json:"brand_id"`
	RuleType     string          `json:"rule_type"`
	Enabled      *bool           `json:"enabled"`
	Conditions   json.RawMessage `json:"conditions" swaggertype:"object"`
	Actions      json.RawMessage `json:"actions" swaggertype:"object"`
	Schedule     string          `json:"schedule"`
	CustomCron   *string         `json:"custom_cron"`
	Priority     int             `json:"priority"`
}

// @Summary Create an optimization rule
// @Tags rules
// @Accept json
// @Param body body createRuleRequest true "rule"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/rules [post]
func (h *RuleHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	p, ok := principal(c)
	if !ok {
		return
	}
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		Error(c, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.ConnectionID == 0 {
		Error(c, http.StatusBadRequest, "connection_id is required", nil)
		return
	}
	ctx := c.Request.Context()
	conn, err := h.Repo.GetConnectionByID(ctx, req.ConnectionID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if conn == nil || !p.CanAccess(conn.UserID) {
		Error(c, http.StatusNotFound, "connection not found", nil)
		return
	}

	item := models.OptimizationRule{
		ID:           uuid.NewString(),
		UserID:       conn.UserID,
		ConnectionID: conn.ID,
		BrandID:      req.BrandID,
		Name:         name,
		RuleType:     strings.ToUpper(strings.TrimSpace(req.RuleType)),
		Enabled:      req.Enabled == nil || *req.Enabled,
		Conditions:   jsonOrEmpty(req.Conditions),
		Actions:      jsonOrEmpty(req.Actions),
		Priority:     req.Priority,
	}
	item.Schedule, item.CustomCron, err = optimization.NormalizeSchedule(req.Schedule, req.CustomCron)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := optimization.ParseRule(&item); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	next := optimization.NextRun(item.Schedule, item.CustomCron, time.Now().UTC(), h.Location)
	item.NextRunAt = &next

	if err := h.Repo.InsertRule(ctx, &item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("rule created",
			zap.String("rule_id", item.ID),
			zap.String("rule_type", item.RuleType),
			zap.Uint64("connection_id", item.ConnectionID),
		)
	}
	Ok(c, item, nil)
}

func (h *RuleHandler) get(c *gin.Context) {
	rule, ok := h.loadRule(c)
	if !ok {
		return
	}
	Ok(c, rule, nil)
}

type updateRuleRequest struct {
	Name       *string         `json:"name"`
	Enabled    *bool           `json:"enabled"`
	Conditions json.RawMessage `json:"conditions" swaggertype:"object"`
	Actions    json.RawMessage `json:"actions" swaggertype:"object"`
	Schedule   *string         `json:"schedule"`
	CustomCron *string         `json:"custom_cron"`
	Priority   *int            `json:"priority"`
}

// @Summary Update an optimization rule
// @Tags rules
// @Accept json
// @Param id path string true "rule id"
// @Param body body updateRuleRequest true "fields to change"
// @Success 200 {object} apiResponse
// @Router /api/v1/rules/{id} [patch]
func (h *RuleHandler) update(c *gin.Context) {
	rule, ok := h.loadRule(c)
	if !ok {
		return
	}
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}

	merged := *rule
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			Error(c, http.StatusBadRequest, "name is required", nil)
			return
		}
		updates["name"] = name
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if len(req.Conditions) > 0 {
		merged.Conditions = jsonOrEmpty(req.Conditions)
		updates["conditions"] = merged.Conditions
	}
	if len(req.Actions) > 0 {
		merged.Actions = jsonOrEmpty(req.Actions)
		updates["actions"] = merged.Actions
	}
	if _, err := optimization.ParseRule(&merged); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.Schedule != nil || req.CustomCron != nil {
		schedule := merged.Schedule
		if req.Schedule != nil {
			schedule = *req.Schedule
		}
		customCron := merged.CustomCron
		if req.CustomCron != nil {
			customCron = req.CustomCron
		}
		var err error
		merged.Schedule, merged.CustomCron, err = optimization.NormalizeSchedule(schedule, customCron)
		if err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		next := optimization.NextRun(merged.Schedule, merged.CustomCron, time.Now().UTC(), h.Location)
		updates["schedule"] = merged.Schedule
		updates["custom_cron"] = merged.CustomCron
		updates["next_run_at"] = &next
	}
	if len(updates) == 0 {
		Ok(c, rule, nil)
		return
	}

	ctx := c.Request.Context()
	if err := h.Repo.UpdateRule(ctx, rule.ID, updates); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	next, err := h.Repo.GetRuleByID(ctx, rule.ID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, next, nil)
}

func (h *RuleHandler) delete(c *gin.Context) {
	rule, ok := h.loadRule(c)
	if !ok {
		return
	}
	if err := h.Repo.DeleteRule(c.Request.Context(), rule.ID); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("rule deleted", zap.String("rule_id", rule.ID))
	}
	Ok(c, gin.H{"id": rule.ID}, nil)
}

// @Summary Execute a rule now
// @Description Runs the rule immediately regardless of its schedule. Returns 409 while another execution of the rule is in progress.
// @Tags rules
// @Param id path string true "rule id"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/rules/{id}/execute [post]
func (h *RuleHandler) execute(c *gin.Context) {
	if h.Engine == nil {
		Error(c, http.StatusInternalServerError, "engine unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	if h.Settings != nil && !h.Settings.IsEnabled(ctx, service.FeatureManualExecute, true) {
		Error(c, http.StatusForbidden, "manual execution disabled", nil)
		return
	}
	rule, ok := h.loadRule(c)
	if !ok {
		return
	}
	if !rule.Enabled {
		Error(c, http.StatusConflict, "rule is disabled", nil)
		return
	}
	conn, err := h.Repo.GetConnectionByID(ctx, rule.ConnectionID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if conn == nil {
		Error(c, http.StatusNotFound, "connection not found", nil)
		return
	}

	result, err := h.Engine.ExecuteRule(ctx, rule, conn)
	if err != nil {
		var meta map[string]any
		if result != nil {
			meta = map[string]any{"execution": result}
		}
		Error(c, executionStatus(err), err.Error(), meta)
		return
	}
	Ok(c, result, nil)
}

// @Summary List executions of a rule
// @Tags rules
// @Param id path string true "rule id"
// @Param status query string false "RUNNING|SUCCESS|FAILED"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/rules/{id}/executions [get]
func (h *RuleHandler) listExecutions(c *gin.Context) {
	rule, ok := h.loadRule(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListExecutionLogsParams{
		Limit:  limit,
		Offset: offset,
		RuleID: &rule.ID,
		Status: strQueryPtr(c, "status"),
	}
	items, err := h.Repo.ListExecutionLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountExecutionLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// loadRule resolves :id for the caller. Rules of other users are reported as
// missing.
func (h *RuleHandler) loadRule(c *gin.Context) (*models.OptimizationRule, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	p, ok := principal(c)
	if !ok {
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return nil, false
	}
	rule, err := h.Repo.GetRuleByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if rule == nil || !p.CanAccess(rule.UserID) {
		Error(c, http.StatusNotFound, "rule not found", nil)
		return nil, false
	}
	return rule, true
}

func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "unauthorized", nil)
	}
	return p, ok
}

func withAuth(mw gin.HandlerFunc) []gin.HandlerFunc {
	if mw == nil {
		return nil
	}
	return []gin.HandlerFunc{mw}
}

func jsonOrEmpty(raw json.RawMessage) datatypes.JSON {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(trimmed)
}
