package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EntityStateEnabled  = "ENABLED"
	EntityStatePaused   = "PAUSED"
	EntityStateArchived = "ARCHIVED"
)

// Campaign is a synced Sponsored Products campaign with trailing metrics.
type Campaign struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ConnectionID uint64 `gorm:"not null;index" json:"connection_id"`
	UserID       uint64 `gorm:"not null;index" json:"user_id"`
	PlatformID   string `gorm:"type:varchar(64);not null;uniqueIndex" json:"platform_id"`
	Name         string `gorm:"type:varchar(255)" json:"name"`
	State        string `gorm:"type:varchar(20);not null;index" json:"state"`
	BudgetType   string `gorm:"type:varchar(20)" json:"budget_type"`

	Budget decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"budget"`

	Impressions int64           `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64           `gorm:"not null;default:0" json:"clicks"`
	Spend       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"spend"`
	Sales       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"sales"`
	Orders      int64           `gorm:"not null;default:0" json:"orders"`

	LastSyncAt *time.Time `json:"last_sync_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}
