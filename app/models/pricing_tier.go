package models

import "time"

// PricingTier stores one catalog tier. The tier body is kept as JSON so
// feature additions do not need a schema change.
type PricingTier struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TierID      string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"tier_id"`
	Position    int       `gorm:"not null;default:0;index" json:"position"`
	PayloadJSON string    `gorm:"type:text;not null" json:"payload_json"`
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PricingTier) TableName() string {
	return "pricing_tiers"
}
