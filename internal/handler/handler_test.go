package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adsoptimizer/internal/auth"
	"adsoptimizer/internal/client/amazonads"
	"adsoptimizer/internal/db"
	"adsoptimizer/internal/models"
	"adsoptimizer/internal/optimization"
	gormrepository "adsoptimizer/internal/repository/gorm"
	"adsoptimizer/internal/service"
)

const (
	testSecret     = "jwt-secret"
	testCronSecret = "cron-secret"
)

type testEnv struct {
	router *gin.Engine
	gdb    *gorm.DB
	jwt    auth.JWT
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqldb.Close() })
	handle := &db.DB{Gorm: gdb, SQL: sqldb}
	if err := db.AutoMigrate(handle); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	seed := []any{
		&models.AmazonConnection{ID: 1, UserID: 1, ProfileID: "p-1", Region: "NA", AccessToken: "tok"},
		&models.AmazonConnection{ID: 2, UserID: 2, ProfileID: "p-2", Region: "EU", AccessToken: "tok"},
		&models.Campaign{ID: 10, ConnectionID: 1, UserID: 1, PlatformID: "c-10", State: models.EntityStateEnabled, Budget: decimal.NewFromInt(20)},
		&models.Keyword{ID: 100, CampaignID: 10, AdGroupID: 1, PlatformID: "k-100", KeywordText: "shoes", State: models.EntityStateEnabled, Bid: decimal.NewFromInt(1)},
	}
	for _, row := range seed {
		if err := gdb.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	store := gormrepository.New(gdb)
	settings := &service.SystemSettingsService{Repo: store}
	engine := &optimization.Engine{
		Repo:    store,
		Clients: &amazonads.Factory{DryRun: true},
	}
	j := auth.JWT{Secret: []byte(testSecret)}
	mw := auth.Middleware(j, false)

	r := gin.New()
	(&HealthHandler{DB: handle}).Register(r)
	(&RuleHandler{Repo: store, Engine: engine, Settings: settings, Auth: mw}).Register(r)
	(&ExecutionHandler{Repo: store, Auth: mw}).Register(r)
	(&SwitchHandler{Settings: settings, Auth: mw}).Register(r)
	(&CronHandler{Engine: engine, Settings: settings, Secret: testCronSecret}).Register(r)
	return &testEnv{router: r, gdb: gdb, jwt: j}
}

func (e *testEnv) token(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := e.jwt.Sign(auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatUint(userID, 10)},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (e *testEnv) createRule(t *testing.T, token string, body map[string]any) models.OptimizationRule {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/api/v1/rules", token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var rule models.OptimizationRule
	if err := json.Unmarshal(env.Data, &rule); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	return rule
}

func bidRuleBody(connectionID uint64) map[string]any {
	return map[string]any{
		"name":          "raise bids",
		"connection_id": connectionID,
		"rule_type":     "bid_adjustment",
		"conditions":    map[string]any{},
		"actions":       map[string]any{"adjustmentType": "PERCENTAGE", "adjustmentValue": 10},
		"schedule":      "HOURLY",
		"priority":      3,
	}
}

func TestRules_CreateAndList(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")

	rule := env.createRule(t, owner, bidRuleBody(1))
	if rule.ID == "" || rule.RuleType != models.RuleTypeBidAdjustment || rule.UserID != 1 {
		t.Fatalf("rule=%+v", rule)
	}
	if rule.NextRunAt == nil || !rule.Enabled {
		t.Fatalf("next_run_at=%v enabled=%v", rule.NextRunAt, rule.Enabled)
	}

	w, resp := env.do(t, http.MethodGet, "/api/v1/rules", owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	if total, _ := resp.Meta["total"].(float64); total != 1 {
		t.Fatalf("total=%v want=1", resp.Meta["total"])
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/rules", env.token(t, 2, ""), nil)
	if total, _ := resp.Meta["total"].(float64); total != 0 {
		t.Fatalf("other user total=%v want=0", resp.Meta["total"])
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/rules", env.token(t, 9, auth.RoleAdmin), nil)
	if total, _ := resp.Meta["total"].(float64); total != 1 {
		t.Fatalf("admin total=%v want=1", resp.Meta["total"])
	}

	if w, _ := env.do(t, http.MethodGet, "/api/v1/rules/"+rule.ID, env.token(t, 2, ""), nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign get status=%d want=404", w.Code)
	}
}

func TestRules_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")

	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules", "", bidRuleBody(1)); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d want=401", w.Code)
	}
	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules", owner, bidRuleBody(2)); w.Code != http.StatusNotFound {
		t.Fatalf("foreign connection status=%d want=404", w.Code)
	}

	bad := bidRuleBody(1)
	bad["actions"] = map[string]any{"adjustmentType": "DOUBLE", "adjustmentValue": 2}
	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules", owner, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("bad adjustment status=%d want=400", w.Code)
	}

	unknown := bidRuleBody(1)
	unknown["rule_type"] = "DAYPARTING"
	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules", owner, unknown); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown type status=%d want=400", w.Code)
	}

	badCron := bidRuleBody(1)
	badCron["schedule"] = "CUSTOM"
	badCron["custom_cron"] = "whenever"
	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules", owner, badCron); w.Code != http.StatusBadRequest {
		t.Fatalf("bad cron status=%d want=400", w.Code)
	}
}

func TestRules_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")
	rule := env.createRule(t, owner, bidRuleBody(1))

	w, resp := env.do(t, http.MethodPatch, "/api/v1/rules/"+rule.ID, owner, map[string]any{
		"enabled":     false,
		"schedule":    "CUSTOM",
		"custom_cron": "0 6 * * *",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", w.Code, w.Body.String())
	}
	var updated models.OptimizationRule
	_ = json.Unmarshal(resp.Data, &updated)
	if updated.Enabled || updated.Schedule != models.ScheduleCustom || updated.CustomCron == nil {
		t.Fatalf("updated=%+v", updated)
	}
	if updated.NextRunAt == nil || updated.NextRunAt.Hour() != 6 {
		t.Fatalf("next_run_at=%v want 06:00", updated.NextRunAt)
	}

	if w, _ := env.do(t, http.MethodPatch, "/api/v1/rules/"+rule.ID, owner, map[string]any{
		"actions": map[string]any{"adjustmentType": "SET"},
	}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid actions status=%d want=400", w.Code)
	}

	if w, _ := env.do(t, http.MethodDelete, "/api/v1/rules/"+rule.ID, owner, nil); w.Code != http.StatusOK {
		t.Fatalf("delete status=%d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/rules/"+rule.ID, owner, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d want=404", w.Code)
	}
}

func TestRules_Execute(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")
	rule := env.createRule(t, owner, bidRuleBody(1))

	w, resp := env.do(t, http.MethodPost, "/api/v1/rules/"+rule.ID+"/execute", owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("execute status=%d body=%s", w.Code, w.Body.String())
	}
	var result optimization.ExecutionResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != models.ExecutionStatusSuccess || result.EntitiesAffected != 1 {
		t.Fatalf("result=%+v", result)
	}

	var kw models.Keyword
	if err := env.gdb.First(&kw, 100).Error; err != nil {
		t.Fatalf("load keyword: %v", err)
	}
	if !kw.Bid.Equal(decimal.RequireFromString("1.1")) {
		t.Fatalf("bid=%s want=1.1", kw.Bid)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/rules/"+rule.ID+"/executions", owner, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("executions status=%d", w.Code)
	}
	if total, _ := resp.Meta["total"].(float64); total != 1 {
		t.Fatalf("executions total=%v want=1", resp.Meta["total"])
	}

	if w, _ := env.do(t, http.MethodGet, "/api/v1/executions/"+result.LogID, owner, nil); w.Code != http.StatusOK {
		t.Fatalf("execution get status=%d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/executions/"+result.LogID, env.token(t, 2, ""), nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign execution status=%d want=404", w.Code)
	}
}

func TestRules_ExecuteDisabled(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")
	body := bidRuleBody(1)
	body["enabled"] = false
	rule := env.createRule(t, owner, body)

	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules/"+rule.ID+"/execute", owner, nil); w.Code != http.StatusConflict {
		t.Fatalf("status=%d want=409", w.Code)
	}
	var count int64
	env.gdb.Model(&models.ExecutionLog{}).Count(&count)
	if count != 0 {
		t.Fatalf("logs=%d want=0", count)
	}
}

func TestSwitches_ManualExecuteGate(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")
	admin := env.token(t, 9, auth.RoleAdmin)
	rule := env.createRule(t, owner, bidRuleBody(1))

	off := map[string]any{"enabled": false}
	if w, _ := env.do(t, http.MethodPut, "/api/v1/switches/manual_execute", owner, off); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin status=%d want=403", w.Code)
	}
	if w, _ := env.do(t, http.MethodPut, "/api/v1/switches/manual_execute", admin, off); w.Code != http.StatusOK {
		t.Fatalf("admin status=%d", w.Code)
	}
	if w, _ := env.do(t, http.MethodPost, "/api/v1/rules/"+rule.ID+"/execute", owner, nil); w.Code != http.StatusForbidden {
		t.Fatalf("gated execute status=%d want=403", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/switches/unknown", owner, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown switch status=%d want=404", w.Code)
	}
}

func TestCron_RunsSweep(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, 1, "")
	rule := env.createRule(t, owner, bidRuleBody(1))
	if err := env.gdb.Model(&models.OptimizationRule{}).Where("id = ?", rule.ID).
		Update("next_run_at", time.Now().UTC().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("make due: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cron/optimization", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no secret status=%d want=401", w.Code)
	}

	w, resp := env.do(t, http.MethodGet, "/api/cron/optimization", testCronSecret, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cron status=%d body=%s", w.Code, w.Body.String())
	}
	var report optimization.SweepReport
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Due != 1 || report.Succeeded != 1 {
		t.Fatalf("report=%+v", report)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if w, _ := env.do(t, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, w.Code)
		}
	}
}

func TestExecutionStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{optimization.ErrRuleBusy, http.StatusConflict},
		{fmt.Errorf("%w: bid", optimization.ErrInvalidRule), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %q", optimization.ErrUnknownRuleType, "X"), http.StatusUnprocessableEntity},
		{fmt.Errorf("list keywords: boom"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		if got := executionStatus(tc.err); got != tc.want {
			t.Fatalf("err=%v status=%d want=%d", tc.err, got, tc.want)
		}
	}
}
