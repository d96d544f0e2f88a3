package gormrepository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"adsoptimizer/internal/models"
	"adsoptimizer/internal/repository"
)

// Candidate reads scope by connection and entity state only; rule thresholds
// are evaluated in-process by the optimization package.

func (s *Store) connectionCampaignIDs(ctx context.Context, connectionID uint64) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Select("id").
		Where("connection_id = ?", connectionID)
}

func (s *Store) ListEnabledKeywords(ctx context.Context, connectionID uint64) ([]models.Keyword, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Keyword
	if err := s.db.WithContext(ctx).
		Model(&models.Keyword{}).
		Where("campaign_id IN (?)", s.connectionCampaignIDs(ctx, connectionID)).
		Where("state = ?", models.EntityStateEnabled).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateKeywordBid(ctx context.Context, id uint64, bid decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Keyword{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"bid": bid, "updated_at": time.Now().UTC()}).Error
}

func (s *Store) UpdateKeywordState(ctx context.Context, id uint64, state string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Keyword{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"state": state, "updated_at": time.Now().UTC()}).Error
}

func (s *Store) ListEnabledCampaigns(ctx context.Context, connectionID uint64) ([]models.Campaign, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Campaign
	if err := s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("connection_id = ?", connectionID).
		Where("state = ?", models.EntityStateEnabled).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateCampaignBudget(ctx context.Context, id uint64, budget decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"budget": budget, "updated_at": time.Now().UTC()}).Error
}

func (s *Store) ListSearchTerms(ctx context.Context, connectionID uint64) ([]repository.SearchTermRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.SearchTermRow
	if err := s.db.WithContext(ctx).
		Table("search_terms AS st").
		Select(`st.id, st.campaign_id, st.ad_group_id, st.search_term AS term,
			st.impressions, st.clicks, st.spend, st.sales, st.conversions,
			c.platform_id AS campaign_platform_id, ag.platform_id AS ad_group_platform_id`).
		Joins("JOIN campaigns c ON c.id = st.campaign_id").
		Joins("LEFT JOIN ad_groups ag ON ag.id = st.ad_group_id").
		Where("c.connection_id = ?", connectionID).
		Order("st.id asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
