package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SearchTerm is one row of the search-term report. The same term can appear on
// several report dates for the same ad group.
type SearchTerm struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CampaignID uint64 `gorm:"not null;index" json:"campaign_id"`
	AdGroupID  uint64 `gorm:"not null;index" json:"ad_group_id"`
	Term       string `gorm:"column:search_term;type:varchar(255);not null;index" json:"search_term"`

	Impressions int64           `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64           `gorm:"not null;default:0" json:"clicks"`
	Spend       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"spend"`
	Sales       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"sales"`
	Conversions int64           `gorm:"not null;default:0" json:"conversions"`

	ReportDate *time.Time `gorm:"type:date" json:"report_date"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (SearchTerm) TableName() string {
	return "search_terms"
}
