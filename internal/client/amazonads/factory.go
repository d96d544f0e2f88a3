package amazonads

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"adsoptimizer/internal/models"
	"adsoptimizer/internal/optimization"
)

// Factory builds a mutation client for each advertising connection.
type Factory struct {
	HTTPClient *http.Client
	ClientID   string
	// Endpoints overrides the default regional hosts, keyed by region.
	Endpoints map[string]string
	DryRun    bool
	Logger    *zap.Logger
}

func (f *Factory) Host(region string) (string, error) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = RegionNA
	}
	if f != nil {
		for k, v := range f.Endpoints {
			if strings.EqualFold(k, region) && strings.TrimSpace(v) != "" {
				return v, nil
			}
		}
	}
	host, ok := defaultHosts[region]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRegion, region)
	}
	return host, nil
}

func (f *Factory) ForConnection(conn *models.AmazonConnection) (optimization.MutationClient, error) {
	if f == nil {
		return nil, fmt.Errorf("advertising client factory not configured")
	}
	if conn == nil {
		return nil, fmt.Errorf("connection is required")
	}
	host, err := f.Host(conn.Region)
	if err != nil {
		return nil, err
	}
	if f.DryRun {
		return &DryRunClient{ConnectionID: conn.ID, Logger: f.Logger}, nil
	}
	if strings.TrimSpace(conn.AccessToken) == "" {
		return nil, fmt.Errorf("connection %d has no access token", conn.ID)
	}
	if strings.TrimSpace(conn.ProfileID) == "" {
		return nil, fmt.Errorf("connection %d has no profile id", conn.ID)
	}
	return NewClient(f.HTTPClient, host, Credentials{
		ClientID:    f.ClientID,
		ProfileID:   conn.ProfileID,
		AccessToken: conn.AccessToken,
	}), nil
}

// DryRunClient accepts every mutation and only logs it.
type DryRunClient struct {
	ConnectionID uint64
	Logger       *zap.Logger
}

func (c *DryRunClient) log(op string, fields ...zap.Field) {
	if c == nil || c.Logger == nil {
		return
	}
	c.Logger.Info("dry-run mutation", append([]zap.Field{
		zap.String("op", op),
		zap.Uint64("connection_id", c.ConnectionID),
	}, fields...)...)
}

func (c *DryRunClient) UpdateKeywordBid(_ context.Context, keywordID string, bid decimal.Decimal) error {
	c.log("update_keyword_bid", zap.String("keyword_id", keywordID), zap.String("bid", bid.StringFixed(2)))
	return nil
}

func (c *DryRunClient) UpdateKeywordState(_ context.Context, keywordID string, state string) error {
	c.log("update_keyword_state", zap.String("keyword_id", keywordID), zap.String("state", state))
	return nil
}

func (c *DryRunClient) UpdateCampaignBudget(_ context.Context, campaignID string, budget decimal.Decimal) error {
	c.log("update_campaign_budget", zap.String("campaign_id", campaignID), zap.String("budget", budget.StringFixed(2)))
	return nil
}

func (c *DryRunClient) AddNegativeKeyword(_ context.Context, campaignID, adGroupID, text, matchType string) error {
	c.log("add_negative_keyword",
		zap.String("campaign_id", campaignID),
		zap.String("ad_group_id", adGroupID),
		zap.String("keyword", text),
		zap.String("match_type", matchType),
	)
	return nil
}
