package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RuleTypeBidAdjustment     = "BID_ADJUSTMENT"
	RuleTypeKeywordAutomation = "KEYWORD_AUTOMATION"
	RuleTypeBudgetControl     = "BUDGET_CONTROL"
	RuleTypeNegativeKeyword   = "NEGATIVE_KEYWORD"
)

const (
	ScheduleHourly = "HOURLY"
	ScheduleDaily  = "DAILY"
	ScheduleWeekly = "WEEKLY"
	ScheduleCustom = "CUSTOM"
)

// OptimizationRule is a user-defined automation over one advertising connection.
// Conditions and Actions keep the JSON shape submitted through the rules API.
type OptimizationRule struct {
	ID           string  `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID       uint64  `gorm:"not null;index" json:"user_id"`
	ConnectionID uint64  `gorm:"not null;index" json:"connection_id"`
	BrandID      *uint64 `gorm:"index" json:"brand_id,omitempty"`
	Name         string  `gorm:"type:varchar(200);not null" json:"name"`
	RuleType     string  `gorm:"type:varchar(40);not null;index" json:"rule_type"`
	Enabled      bool    `gorm:"not null;default:true;index:idx_rules_due,priority:1" json:"enabled"`

	Conditions datatypes.JSON `gorm:"not null" json:"conditions"`
	Actions    datatypes.JSON `gorm:"not null" json:"actions"`

	Schedule   string  `gorm:"type:varchar(20);not null;default:'DAILY'" json:"schedule"`
	CustomCron *string `gorm:"type:varchar(120)" json:"custom_cron,omitempty"`
	Priority   int     `gorm:"not null;default:0;index" json:"priority"`

	NextRunAt    *time.Time `gorm:"index:idx_rules_due,priority:2" json:"next_run_at"`
	LastRunAt    *time.Time `json:"last_run_at"`
	RunCount     int64      `gorm:"not null;default:0" json:"run_count"`
	SuccessCount int64      `gorm:"not null;default:0" json:"success_count"`
	FailureCount int64      `gorm:"not null;default:0" json:"failure_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OptimizationRule) TableName() string {
	return "optimization_rules"
}
