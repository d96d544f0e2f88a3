package optimization

import (
	"context"
	"fmt"

	"adsoptimizer/internal/models"
)

type searchTermScope struct {
	term       string
	campaignID uint64
	adGroupID  uint64
}

// addNegativeKeywords submits each qualifying search term once per ad group,
// even when the report carries it on several dates.
func (x *executor) addNegativeKeywords(ctx context.Context, rule NegativeKeywordRule) ([]models.ChangeRecord, error) {
	rows, err := x.store.ListSearchTerms(ctx, x.connectionID)
	if err != nil {
		return nil, fmt.Errorf("list search terms: %w", err)
	}
	changes := make([]models.ChangeRecord, 0)
	seen := make(map[searchTermScope]struct{})
	for _, st := range rows {
		if err := ctx.Err(); err != nil {
			return changes, err
		}
		if !rule.matches(st) {
			continue
		}
		scope := searchTermScope{term: st.Term, campaignID: st.CampaignID, adGroupID: st.AdGroupID}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		if err := x.client.AddNegativeKeyword(ctx, st.CampaignPlatformID, st.AdGroupPlatformID, st.Term, rule.MatchType); err != nil {
			x.skip("add_negative_keyword", st.ID, err)
			continue
		}
		changes = append(changes, models.ChangeRecord{
			Entity:     models.ChangeEntityNegativeKeyword,
			Action:     models.ChangeActionAdd,
			Keyword:    st.Term,
			MatchType:  rule.MatchType,
			CampaignID: st.CampaignID,
			AdGroupID:  st.AdGroupID,
		})
	}
	return changes, nil
}
