package optimization

import (
	"context"
	"fmt"

	"adsoptimizer/internal/models"
)

func (x *executor) controlBudgets(ctx context.Context, rule BudgetControlRule) ([]models.ChangeRecord, error) {
	campaigns, err := x.store.ListEnabledCampaigns(ctx, x.connectionID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	changes := make([]models.ChangeRecord, 0)
	for _, c := range campaigns {
		if err := ctx.Err(); err != nil {
			return changes, err
		}
		if !rule.matches(campaignPerformance(c)) {
			continue
		}
		newBudget := ComputeAdjustedValue(c.Budget, rule.Budget)
		if newBudget.Equal(c.Budget) {
			continue
		}
		if err := x.client.UpdateCampaignBudget(ctx, c.PlatformID, newBudget); err != nil {
			x.skip("update_campaign_budget", c.ID, err)
			continue
		}
		changes = append(changes, models.ChangeRecord{
			Entity:   models.ChangeEntityCampaign,
			EntityID: c.ID,
			Action:   models.ChangeActionBudgetAdjustment,
			OldValue: decimalPtr(c.Budget),
			NewValue: decimalPtr(newBudget),
		})
		if err := x.store.UpdateCampaignBudget(ctx, c.ID, newBudget); err != nil {
			return changes, fmt.Errorf("persist campaign %d budget: %w", c.ID, err)
		}
	}
	return changes, nil
}
