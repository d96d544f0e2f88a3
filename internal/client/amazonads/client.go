package amazonads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RegionNA = "NA"
	RegionEU = "EU"
	RegionFE = "FE"
)

var defaultHosts = map[string]string{
	RegionNA: "https://advertising-api.amazon.com",
	RegionEU: "https://advertising-api-eu.amazon.com",
	RegionFE: "https://advertising-api-fe.amazon.com",
}

var ErrUnsupportedRegion = errors.New("unsupported advertising region")

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

// MutationError is a per-item rejection inside a 2xx response.
type MutationError struct {
	Code    string
	Details string
}

func (e *MutationError) Error() string {
	if e.Details == "" {
		return "mutation rejected: " + e.Code
	}
	return fmt.Sprintf("mutation rejected: %s: %s", e.Code, e.Details)
}

type Credentials struct {
	ClientID    string
	ProfileID   string
	AccessToken string
}

// Client talks to the Sponsored Products v2 API on behalf of one profile.
type Client struct {
	host       string
	creds      Credentials
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, host string, creds Credentials) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if host == "" {
		host = defaultHosts[RegionNA]
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		creds:      creds,
		httpClient: httpClient,
	}
}

type mutationResult struct {
	Code        string `json:"code"`
	Details     string `json:"details"`
	Description string `json:"description"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	req.Header.Set("Amazon-Advertising-API-ClientId", c.creds.ClientID)
	req.Header.Set("Amazon-Advertising-API-Scope", c.creds.ProfileID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var results []mutationResult
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 {
		return errors.New("empty mutation response")
	}
	for _, r := range results {
		if !strings.EqualFold(r.Code, "SUCCESS") {
			details := r.Details
			if details == "" {
				details = r.Description
			}
			return &MutationError{Code: r.Code, Details: details}
		}
	}
	return nil
}

type keywordBidUpdate struct {
	KeywordID int64       `json:"keywordId"`
	Bid       json.Number `json:"bid"`
}

type keywordStateUpdate struct {
	KeywordID int64  `json:"keywordId"`
	State     string `json:"state"`
}

type campaignBudgetUpdate struct {
	CampaignID  int64       `json:"campaignId"`
	DailyBudget json.Number `json:"dailyBudget"`
}

type negativeKeywordCreate struct {
	CampaignID  int64  `json:"campaignId"`
	AdGroupID   int64  `json:"adGroupId"`
	KeywordText string `json:"keywordText"`
	MatchType   string `json:"matchType"`
	State       string `json:"state"`
}

func (c *Client) UpdateKeywordBid(ctx context.Context, keywordID string, bid decimal.Decimal) error {
	id, err := parseID("keyword_id", keywordID)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, "/v2/sp/keywords", []keywordBidUpdate{
		{KeywordID: id, Bid: money(bid)},
	})
}

func (c *Client) UpdateKeywordState(ctx context.Context, keywordID string, state string) error {
	id, err := parseID("keyword_id", keywordID)
	if err != nil {
		return err
	}
	state = strings.ToLower(strings.TrimSpace(state))
	if state == "" {
		return fmt.Errorf("state is required")
	}
	return c.doJSON(ctx, http.MethodPut, "/v2/sp/keywords", []keywordStateUpdate{
		{KeywordID: id, State: state},
	})
}

func (c *Client) UpdateCampaignBudget(ctx context.Context, campaignID string, budget decimal.Decimal) error {
	id, err := parseID("campaign_id", campaignID)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, "/v2/sp/campaigns", []campaignBudgetUpdate{
		{CampaignID: id, DailyBudget: money(budget)},
	})
}

func (c *Client) AddNegativeKeyword(ctx context.Context, campaignID, adGroupID, text, matchType string) error {
	cid, err := parseID("campaign_id", campaignID)
	if err != nil {
		return err
	}
	agid, err := parseID("ad_group_id", adGroupID)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("keyword text is required")
	}
	mt, err := negativeMatchType(matchType)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "/v2/sp/negativeKeywords", []negativeKeywordCreate{
		{CampaignID: cid, AdGroupID: agid, KeywordText: text, MatchType: mt, State: "enabled"},
	})
}

func parseID(name, v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return id, nil
}

func money(v decimal.Decimal) json.Number {
	return json.Number(v.StringFixed(2))
}

func negativeMatchType(v string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "NEGATIVE_PHRASE", "NEGATIVEPHRASE":
		return "negativePhrase", nil
	case "NEGATIVE_EXACT", "NEGATIVEEXACT":
		return "negativeExact", nil
	default:
		return "", fmt.Errorf("unsupported negative match type %q", v)
	}
}
