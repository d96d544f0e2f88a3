package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AdGroup struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CampaignID uint64          `gorm:"not null;index" json:"campaign_id"`
	PlatformID string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"platform_id"`
	Name       string          `gorm:"type:varchar(255)" json:"name"`
	State      string          `gorm:"type:varchar(20);not null" json:"state"`
	DefaultBid decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"default_bid"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AdGroup) TableName() string {
	return "ad_groups"
}
