package optimization

import (
	"context"
	"fmt"

	"adsoptimizer/internal/models"
)

func (x *executor) automateKeywords(ctx context.Context, rule KeywordAutomationRule) ([]models.ChangeRecord, error) {
	changes := make([]models.ChangeRecord, 0)
	if !rule.PauseUnderperforming {
		return changes, nil
	}
	keywords, err := x.store.ListEnabledKeywords(ctx, x.connectionID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return changes, err
		}
		if !rule.underperforming(keywordPerformance(kw)) {
			continue
		}
		if err := x.client.UpdateKeywordState(ctx, kw.PlatformID, models.EntityStatePaused); err != nil {
			x.skip("update_keyword_state", kw.ID, err)
			continue
		}
		changes = append(changes, models.ChangeRecord{
			Entity:   models.ChangeEntityKeyword,
			EntityID: kw.ID,
			Action:   models.ChangeActionPause,
			Reason:   reasonUnderperforming,
		})
		if err := x.store.UpdateKeywordState(ctx, kw.ID, models.EntityStatePaused); err != nil {
			return changes, fmt.Errorf("persist keyword %d state: %w", kw.ID, err)
		}
	}
	return changes, nil
}
