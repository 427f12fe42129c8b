package pricing

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/JobFox/app/models"
)

// GormSource keeps the catalog in the pricing_tiers table.
type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

func (s *GormSource) FetchTiers(ctx context.Context) ([]Tier, error) {
	var rows []models.PricingTier
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("position ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tiers := make([]Tier, 0, len(rows))
	for _, row := range rows {
		var t Tier
		if err := json.Unmarshal([]byte(row.PayloadJSON), &t); err != nil {
			return nil, fmt.Errorf("decode tier %q: %w", row.TierID, err)
		}
		t.ID = row.TierID
		tiers = append(tiers, t)
	}
	return tiers, nil
}

// SaveTier upserts by tier id. New tiers are appended after the existing
// ones; updates keep their position.
func (s *GormSource) SaveTier(ctx context.Context, tier Tier) error {
	payload, err := json.Marshal(tier)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&models.PricingTier{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPos).Error; err != nil {
			return err
		}
		row := models.PricingTier{
			TierID:      tier.ID,
			Position:    maxPos + 1,
			PayloadJSON: string(payload),
			IsActive:    true,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tier_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload_json", "is_active", "updated_at"}),
		}).Create(&row).Error
	})
}

// Seed writes tiers that are not yet stored, keeping their order.
func (s *GormSource) Seed(ctx context.Context, tiers []Tier) error {
	for i, t := range tiers {
		payload, err := json.Marshal(t)
		if err != nil {
			return err
		}
		row := models.PricingTier{TierID: t.ID, Position: i + 1, PayloadJSON: string(payload), IsActive: true}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("seed tier %q: %w", t.ID, err)
		}
	}
	return nil
}
