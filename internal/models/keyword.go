package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Keyword struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CampaignID  uint64 `gorm:"not null;index" json:"campaign_id"`
	AdGroupID   uint64 `gorm:"not null;index" json:"ad_group_id"`
	PlatformID  string `gorm:"type:varchar(64);not null;uniqueIndex" json:"platform_id"`
	KeywordText string `gorm:"type:varchar(255);not null" json:"keyword_text"`
	MatchType   string `gorm:"type:varchar(20)" json:"match_type"`
	State       string `gorm:"type:varchar(20);not null;index" json:"state"`

	Bid decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"bid"`

	Impressions int64           `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64           `gorm:"not null;default:0" json:"clicks"`
	Spend       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"spend"`
	Sales       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"sales"`
	Orders      int64           `gorm:"not null;default:0" json:"orders"`

	LastSyncAt *time.Time `json:"last_sync_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Keyword) TableName() string {
	return "keywords"
}
