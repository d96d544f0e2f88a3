package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"adsoptimizer/internal/models"
)

// ErrExecutionLogNotRunning is returned when finalizing a log that already reached a terminal state.
var ErrExecutionLogNotRunning = errors.New("execution log is not running")

// RuleRepository persists optimization rules and their run statistics.
type RuleRepository interface {
	InsertRule(ctx context.Context, item *models.OptimizationRule) error
	GetRuleByID(ctx context.Context, id string) (*models.OptimizationRule, error)
	ListRules(ctx context.Context, params ListRulesParams) ([]models.OptimizationRule, error)
	CountRules(ctx context.Context, params ListRulesParams) (int64, error)
	UpdateRule(ctx context.Context, id string, updates map[string]any) error
	DeleteRule(ctx context.Context, id string) error

	// ListDueRules returns enabled rules with next_run_at <= now, highest priority first.
	ListDueRules(ctx context.Context, now time.Time) ([]models.OptimizationRule, error)
	RecordRuleSuccess(ctx context.Context, id string, ranAt time.Time, nextRunAt time.Time) error
	RecordRuleFailure(ctx context.Context, id string, ranAt time.Time) error
}

// ExecutionLogRepository persists the per-invocation audit trail.
type ExecutionLogRepository interface {
	InsertExecutionLog(ctx context.Context, item *models.ExecutionLog) error
	FinalizeExecutionLog(ctx context.Context, id string, result ExecutionLogResult) error
	GetExecutionLogByID(ctx context.Context, id string) (*models.ExecutionLog, error)
	ListExecutionLogs(ctx context.Context, params ListExecutionLogsParams) ([]models.ExecutionLog, error)
	CountExecutionLogs(ctx context.Context, params ListExecutionLogsParams) (int64, error)

	// HasRunningExecution reports whether the rule has a RUNNING log started at or after since.
	HasRunningExecution(ctx context.Context, ruleID string, since time.Time) (bool, error)
	FailStaleExecutions(ctx context.Context, startedBefore time.Time, message string) (int64, error)
}

// MetricRepository is the read/targeted-write view over synced advertising data.
type MetricRepository interface {
	ListEnabledKeywords(ctx context.Context, connectionID uint64) ([]models.Keyword, error)
	UpdateKeywordBid(ctx context.Context, id uint64, bid decimal.Decimal) error
	UpdateKeywordState(ctx context.Context, id uint64, state string) error
	ListEnabledCampaigns(ctx context.Context, connectionID uint64) ([]models.Campaign, error)
	UpdateCampaignBudget(ctx context.Context, id uint64, budget decimal.Decimal) error
	ListSearchTerms(ctx context.Context, connectionID uint64) ([]SearchTermRow, error)
}

type ConnectionRepository interface {
	GetConnectionByID(ctx context.Context, id uint64) (*models.AmazonConnection, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
}

// Repository is the full storage surface served by the gorm store.
type Repository interface {
	RuleRepository
	ExecutionLogRepository
	MetricRepository
	ConnectionRepository
	SettingsRepository
}

type ListRulesParams struct {
	Limit        int
	Offset       int
	UserID       *uint64
	ConnectionID *uint64
	BrandID      *uint64
	Enabled      *bool
	RuleType     *string
}

type ListExecutionLogsParams struct {
	Limit  int
	Offset int
	RuleID *string
	Status *string
}

// ExecutionLogResult is the terminal state written to a RUNNING log.
type ExecutionLogResult struct {
	Status           string
	CompletedAt      time.Time
	DurationMs       int64
	EntitiesAffected int
	ChangesMade      []byte
	ErrorMessage     *string
}

// SearchTermRow is a search-term report row joined with the platform ids of
// its campaign and ad group.
type SearchTermRow struct {
	ID                 uint64
	CampaignID         uint64
	AdGroupID          uint64
	Term               string
	Impressions        int64
	Clicks             int64
	Spend              decimal.Decimal
	Sales              decimal.Decimal
	Conversions        int64
	CampaignPlatformID string
	AdGroupPlatformID  string
}
