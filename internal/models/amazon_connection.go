package models

import "time"

// AmazonConnection holds the credentials of one linked advertising profile.
// It is maintained by the identity layer; the optimizer only reads it.
type AmazonConnection struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;index" json:"user_id"`

	ProfileID   string `gorm:"type:varchar(64);not null" json:"profile_id"`
	Region      string `gorm:"type:varchar(8);not null;default:'NA'" json:"region"`
	Marketplace string `gorm:"type:varchar(16)" json:"marketplace"`

	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AmazonConnection) TableName() string {
	return "amazon_connections"
}
