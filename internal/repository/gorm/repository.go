package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adsoptimizer/internal/models"
	"adsoptimizer/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- rules -------------------------------------------------------------------

func (s *Store) InsertRule(ctx context.Context, item *models.OptimizationRule) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	enabled := item.Enabled
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		if enabled {
			return nil
		}
		// Create skips a false value for a column with a default.
		if err := tx.Model(&models.OptimizationRule{}).Where("id = ?", item.ID).Update("enabled", false).Error; err != nil {
			return err
		}
		item.Enabled = false
		return nil
	})
}

func (s *Store) GetRuleByID(ctx context.Context, id string) (*models.OptimizationRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.OptimizationRule
	err := s.db.WithContext(ctx).Model(&models.OptimizationRule{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListRules(ctx context.Context, params repository.ListRulesParams) ([]models.OptimizationRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.OptimizationRule
	if err := s.ruleQuery(ctx, params).Order("priority desc, created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountRules(ctx context.Context, params repository.ListRulesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.ruleQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ruleQuery(ctx context.Context, params repository.ListRulesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.OptimizationRule{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.ConnectionID != nil {
		query = query.Where("connection_id = ?", *params.ConnectionID)
	}
	if params.BrandID != nil {
		query = query.Where("brand_id = ?", *params.BrandID)
	}
	if params.Enabled != nil {
		query = query.Where("enabled = ?", *params.Enabled)
	}
	if params.RuleType != nil && strings.TrimSpace(*params.RuleType) != "" {
		query = query.Where("rule_type = ?", strings.ToUpper(strings.TrimSpace(*params.RuleType)))
	}
	return query
}

func (s *Store) UpdateRule(ctx context.Context, id string, updates map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return s.db.WithContext(ctx).
		Model(&models.OptimizationRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.OptimizationRule{}).Error
}

func (s *Store) ListDueRules(ctx context.Context, now time.Time) ([]models.OptimizationRule, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.OptimizationRule
	if err := s.db.WithContext(ctx).
		Model(&models.OptimizationRule{}).
		Where("enabled = ?", true).
		Where("next_run_at IS NOT NULL").
		Where("next_run_at <= ?", now).
		Order("priority desc, created_at asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) RecordRuleSuccess(ctx context.Context, id string, ranAt time.Time, nextRunAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.OptimizationRule{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_run_at":   ranAt,
			"next_run_at":   nextRunAt,
			"run_count":     gorm.Expr("run_count + ?", 1),
			"success_count": gorm.Expr("success_count + ?", 1),
			"updated_at":    time.Now().UTC(),
		}).Error
}

// RecordRuleFailure leaves next_run_at untouched.
func (s *Store) RecordRuleFailure(ctx context.Context, id string, ranAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.OptimizationRule{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_run_at":   ranAt,
			"run_count":     gorm.Expr("run_count + ?", 1),
			"failure_count": gorm.Expr("failure_count + ?", 1),
			"updated_at":    time.Now().UTC(),
		}).Error
}

// --- execution logs ----------------------------------------------------------

func (s *Store) InsertExecutionLog(ctx context.Context, item *models.ExecutionLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) FinalizeExecutionLog(ctx context.Context, id string, result repository.ExecutionLogResult) error {
	if s == nil || s.db == nil {
		return nil
	}
	completedAt := result.CompletedAt
	durationMs := result.DurationMs
	updates := map[string]any{
		"status":            result.Status,
		"completed_at":      &completedAt,
		"duration_ms":       &durationMs,
		"entities_affected": result.EntitiesAffected,
		"error_message":     result.ErrorMessage,
	}
	if result.ChangesMade != nil {
		updates["changes_made"] = result.ChangesMade
	}
	res := s.db.WithContext(ctx).
		Model(&models.ExecutionLog{}).
		Where("id = ?", id).
		Where("status = ?", models.ExecutionStatusRunning).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrExecutionLogNotRunning
	}
	return nil
}

func (s *Store) GetExecutionLogByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.ExecutionLog
	err := s.db.WithContext(ctx).Model(&models.ExecutionLog{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListExecutionLogs(ctx context.Context, params repository.ListExecutionLogsParams) ([]models.ExecutionLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.ExecutionLog
	if err := s.logQuery(ctx, params).Order("started_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountExecutionLogs(ctx context.Context, params repository.ListExecutionLogsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.logQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) logQuery(ctx context.Context, params repository.ListExecutionLogsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.ExecutionLog{})
	if params.RuleID != nil && strings.TrimSpace(*params.RuleID) != "" {
		query = query.Where("rule_id = ?", strings.TrimSpace(*params.RuleID))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.ToUpper(strings.TrimSpace(*params.Status)))
	}
	return query
}

func (s *Store) HasRunningExecution(ctx context.Context, ruleID string, since time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var count int64
	query := s.db.WithContext(ctx).
		Model(&models.ExecutionLog{}).
		Where("rule_id = ?", ruleID).
		Where("status = ?", models.ExecutionStatusRunning)
	if !since.IsZero() {
		query = query.Where("started_at >= ?", since)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) FailStaleExecutions(ctx context.Context, startedBefore time.Time, message string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&models.ExecutionLog{}).
		Where("status = ?", models.ExecutionStatusRunning).
		Where("started_at < ?", startedBefore).
		Updates(map[string]any{
			"status":        models.ExecutionStatusFailed,
			"completed_at":  &now,
			"error_message": &message,
		})
	return res.RowsAffected, res.Error
}

// --- connections & settings --------------------------------------------------

func (s *Store) GetConnectionByID(ctx context.Context, id uint64) (*models.AmazonConnection, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.AmazonConnection
	err := s.db.WithContext(ctx).Model(&models.AmazonConnection{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
