package optimization

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"adsoptimizer/internal/models"
	"adsoptimizer/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

type stubRepo struct {
	mu sync.Mutex

	rules       map[string]*models.OptimizationRule
	logs        map[string]*models.ExecutionLog
	logOrder    []string
	keywords    []models.Keyword
	campaigns   []models.Campaign
	searchTerms []repository.SearchTermRow
	connections map[uint64]*models.AmazonConnection

	dueOverride       []models.OptimizationRule
	listDueErr        error
	persistKeywordErr error
	connErr           error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		rules:       map[string]*models.OptimizationRule{},
		logs:        map[string]*models.ExecutionLog{},
		connections: map[uint64]*models.AmazonConnection{1: {ID: 1, UserID: 1, ProfileID: "p-1", Region: "NA", AccessToken: "tok"}},
	}
}

func (s *stubRepo) InsertRule(_ context.Context, item *models.OptimizationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.rules[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetRuleByID(_ context.Context, id string) (*models.OptimizationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *stubRepo) ListRules(_ context.Context, _ repository.ListRulesParams) ([]models.OptimizationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.OptimizationRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRepo) CountRules(_ context.Context, _ repository.ListRulesParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rules)), nil
}

func (s *stubRepo) UpdateRule(_ context.Context, id string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return nil
	}
	if v, ok := updates["enabled"].(bool); ok {
		r.Enabled = v
	}
	return nil
}

func (s *stubRepo) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
	return nil
}

func (s *stubRepo) ListDueRules(_ context.Context, now time.Time) ([]models.OptimizationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listDueErr != nil {
		return nil, s.listDueErr
	}
	if s.dueOverride != nil {
		return append([]models.OptimizationRule(nil), s.dueOverride...), nil
	}
	out := make([]models.OptimizationRule, 0)
	for _, r := range s.rules {
		if r.Enabled && r.NextRunAt != nil && !r.NextRunAt.After(now) {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *stubRepo) RecordRuleSuccess(_ context.Context, id string, ranAt time.Time, nextRunAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return nil
	}
	r.LastRunAt = &ranAt
	r.NextRunAt = &nextRunAt
	r.RunCount++
	r.SuccessCount++
	return nil
}

func (s *stubRepo) RecordRuleFailure(_ context.Context, id string, ranAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return nil
	}
	r.LastRunAt = &ranAt
	r.RunCount++
	r.FailureCount++
	return nil
}

func (s *stubRepo) InsertExecutionLog(_ context.Context, item *models.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.logs[item.ID] = &cp
	s.logOrder = append(s.logOrder, item.ID)
	return nil
}

func (s *stubRepo) FinalizeExecutionLog(_ context.Context, id string, result repository.ExecutionLogResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok || l.Status != models.ExecutionStatusRunning {
		return repository.ErrExecutionLogNotRunning
	}
	completedAt := result.CompletedAt
	duration := result.DurationMs
	l.Status = result.Status
	l.CompletedAt = &completedAt
	l.DurationMs = &duration
	l.EntitiesAffected = result.EntitiesAffected
	l.ErrorMessage = result.ErrorMessage
	if result.ChangesMade != nil {
		l.ChangesMade = datatypes.JSON(result.ChangesMade)
	}
	return nil
}

func (s *stubRepo) GetExecutionLogByID(_ context.Context, id string) (*models.ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *stubRepo) ListExecutionLogs(_ context.Context, params repository.ListExecutionLogsParams) ([]models.ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ExecutionLog, 0)
	for _, id := range s.logOrder {
		l := s.logs[id]
		if params.RuleID != nil && l.RuleID != *params.RuleID {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (s *stubRepo) CountExecutionLogs(ctx context.Context, params repository.ListExecutionLogsParams) (int64, error) {
	items, err := s.ListExecutionLogs(ctx, params)
	return int64(len(items)), err
}

func (s *stubRepo) HasRunningExecution(_ context.Context, ruleID string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.RuleID != ruleID || l.Status != models.ExecutionStatusRunning {
			continue
		}
		if since.IsZero() || !l.StartedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) FailStaleExecutions(_ context.Context, startedBefore time.Time, message string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.logs {
		if l.Status == models.ExecutionStatusRunning && l.StartedAt.Before(startedBefore) {
			msg := message
			l.Status = models.ExecutionStatusFailed
			l.ErrorMessage = &msg
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) ListEnabledKeywords(_ context.Context, _ uint64) ([]models.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Keyword, 0)
	for _, k := range s.keywords {
		if k.State == models.EntityStateEnabled {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateKeywordBid(_ context.Context, id uint64, bid decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistKeywordErr != nil {
		return s.persistKeywordErr
	}
	for i := range s.keywords {
		if s.keywords[i].ID == id {
			s.keywords[i].Bid = bid
		}
	}
	return nil
}

func (s *stubRepo) UpdateKeywordState(_ context.Context, id uint64, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.keywords {
		if s.keywords[i].ID == id {
			s.keywords[i].State = state
		}
	}
	return nil
}

func (s *stubRepo) ListEnabledCampaigns(_ context.Context, _ uint64) ([]models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Campaign, 0)
	for _, c := range s.campaigns {
		if c.State == models.EntityStateEnabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateCampaignBudget(_ context.Context, id uint64, budget decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.campaigns {
		if s.campaigns[i].ID == id {
			s.campaigns[i].Budget = budget
		}
	}
	return nil
}

func (s *stubRepo) ListSearchTerms(_ context.Context, _ uint64) ([]repository.SearchTermRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.SearchTermRow(nil), s.searchTerms...), nil
}

func (s *stubRepo) GetConnectionByID(_ context.Context, id uint64) (*models.AmazonConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connErr != nil {
		return nil, s.connErr
	}
	c, ok := s.connections[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *stubRepo) UpsertSystemSetting(context.Context, *models.SystemSetting) error { return nil }

func (s *stubRepo) GetSystemSettingByKey(context.Context, string) (*models.SystemSetting, error) {
	return nil, nil
}

func (s *stubRepo) keyword(id uint64) models.Keyword {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keywords {
		if k.ID == id {
			return k
		}
	}
	return models.Keyword{}
}

func (s *stubRepo) onlyLog() *models.ExecutionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logOrder) != 1 {
		return nil
	}
	cp := *s.logs[s.logOrder[0]]
	return &cp
}

var errRemote = errors.New("remote rejected")

type stubClient struct {
	mu sync.Mutex

	fail      map[string]error
	panicOn   string
	bids      map[string]decimal.Decimal
	states    map[string]string
	budgets   map[string]decimal.Decimal
	negatives []string
	calls     int
	delay     time.Duration
}

func newStubClient() *stubClient {
	return &stubClient{
		fail:    map[string]error{},
		bids:    map[string]decimal.Decimal{},
		states:  map[string]string{},
		budgets: map[string]decimal.Decimal{},
	}
}

func (c *stubClient) check(id string) error {
	c.calls++
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.panicOn != "" && c.panicOn == id {
		panic("boom")
	}
	return c.fail[id]
}

func (c *stubClient) UpdateKeywordBid(_ context.Context, id string, bid decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(id); err != nil {
		return err
	}
	c.bids[id] = bid
	return nil
}

func (c *stubClient) UpdateKeywordState(_ context.Context, id string, state string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(id); err != nil {
		return err
	}
	c.states[id] = state
	return nil
}

func (c *stubClient) UpdateCampaignBudget(_ context.Context, id string, budget decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(id); err != nil {
		return err
	}
	c.budgets[id] = budget
	return nil
}

func (c *stubClient) AddNegativeKeyword(_ context.Context, campaignID, adGroupID, text, matchType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(text); err != nil {
		return err
	}
	c.negatives = append(c.negatives, campaignID+"/"+adGroupID+"/"+text+"/"+matchType)
	return nil
}

type stubFactory struct {
	client *stubClient
	err    error
}

func (f stubFactory) ForConnection(*models.AmazonConnection) (MutationClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func newTestEngine(repo *stubRepo, client *stubClient) *Engine {
	return &Engine{
		Repo:       repo,
		Clients:    stubFactory{client: client},
		StaleAfter: 30 * time.Minute,
		Now:        func() time.Time { return testNow },
	}
}

func addRule(repo *stubRepo, id, ruleType, conditions, actions string) *models.OptimizationRule {
	due := testNow.Add(-time.Minute)
	rule := &models.OptimizationRule{
		ID:           id,
		UserID:       1,
		ConnectionID: 1,
		Name:         id,
		RuleType:     ruleType,
		Enabled:      true,
		Conditions:   datatypes.JSON(conditions),
		Actions:      datatypes.JSON(actions),
		Schedule:     models.ScheduleDaily,
		NextRunAt:    &due,
		CreatedAt:    testNow.Add(-24 * time.Hour),
	}
	_ = repo.InsertRule(context.Background(), rule)
	return rule
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
