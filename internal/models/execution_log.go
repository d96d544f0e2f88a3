package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ExecutionStatusRunning = "RUNNING"
	ExecutionStatusSuccess = "SUCCESS"
	ExecutionStatusFailed  = "FAILED"
)

// ExecutionLog records one invocation of a rule. It is created RUNNING and
// finalized exactly once as SUCCESS or FAILED.
type ExecutionLog struct {
	ID           string `gorm:"type:varchar(64);primaryKey" json:"id"`
	RuleID       string `gorm:"type:varchar(64);not null;index:idx_execution_logs_rule_status,priority:1" json:"rule_id"`
	ConnectionID uint64 `gorm:"not null;index" json:"connection_id"`
	Status       string `gorm:"type:varchar(20);not null;index:idx_execution_logs_rule_status,priority:2" json:"status"`

	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	DurationMs  *int64     `json:"duration_ms"`

	EntitiesAffected int            `gorm:"not null;default:0" json:"entities_affected"`
	ChangesMade      datatypes.JSON `json:"changes_made"`
	ErrorMessage     *string        `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ExecutionLog) TableName() string {
	return "execution_logs"
}

const (
	ChangeEntityKeyword         = "keyword"
	ChangeEntityCampaign        = "campaign"
	ChangeEntityNegativeKeyword = "negative_keyword"

	ChangeActionBidAdjustment    = "bid_adjustment"
	ChangeActionPause            = "pause"
	ChangeActionBudgetAdjustment = "budget_adjustment"
	ChangeActionAdd              = "add"
)

// ChangeRecord is one applied mutation, stored inside ExecutionLog.ChangesMade.
type ChangeRecord struct {
	Entity    string           `json:"entity"`
	EntityID  uint64           `json:"entity_id,omitempty"`
	Action    string           `json:"action"`
	OldValue  *decimal.Decimal `json:"old_value,omitempty"`
	NewValue  *decimal.Decimal `json:"new_value,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Keyword   string           `json:"keyword,omitempty"`
	MatchType string           `json:"match_type,omitempty"`

	CampaignID uint64 `json:"campaign_id,omitempty"`
	AdGroupID  uint64 `json:"ad_group_id,omitempty"`
}
