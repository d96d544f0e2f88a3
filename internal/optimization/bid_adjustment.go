package optimization

import (
	"context"
	"fmt"

	"adsoptimizer/internal/models"
)

func (x *executor) adjustBids(ctx context.Context, rule BidAdjustmentRule) ([]models.ChangeRecord, error) {
	keywords, err := x.store.ListEnabledKeywords(ctx, x.connectionID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	changes := make([]models.ChangeRecord, 0)
	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return changes, err
		}
		if !rule.matches(keywordPerformance(kw)) {
			continue
		}
		newBid := ComputeAdjustedValue(kw.Bid, rule.Bid)
		if newBid.Equal(kw.Bid) {
			continue
		}
		if err := x.client.UpdateKeywordBid(ctx, kw.PlatformID, newBid); err != nil {
			x.skip("update_keyword_bid", kw.ID, err)
			continue
		}
		changes = append(changes, models.ChangeRecord{
			Entity:   models.ChangeEntityKeyword,
			EntityID: kw.ID,
			Action:   models.ChangeActionBidAdjustment,
			OldValue: decimalPtr(kw.Bid),
			NewValue: decimalPtr(newBid),
		})
		if err := x.store.UpdateKeywordBid(ctx, kw.ID, newBid); err != nil {
			return changes, fmt.Errorf("persist keyword %d bid: %w", kw.ID, err)
		}
	}
	return changes, nil
}
