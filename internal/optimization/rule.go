package optimization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"adsoptimizer/internal/models"
)

var (
	ErrUnknownRuleType = errors.New("unknown rule type")
	ErrInvalidRule     = errors.New("invalid rule")
	ErrRuleBusy        = errors.New("rule is already running")
)

const (
	AdjustmentPercentage = "PERCENTAGE"
	AdjustmentFixed      = "FIXED"
	AdjustmentSet        = "SET"

	MatchNegativePhrase = "NEGATIVE_PHRASE"
	MatchNegativeExact  = "NEGATIVE_EXACT"
)

const reasonUnderperforming = "underperforming"

// Rule is a parsed optimization rule. The set of implementations is closed:
// BidAdjustmentRule, KeywordAutomationRule, BudgetControlRule and
// NegativeKeywordRule.
type Rule interface {
	Type() string
	apply(ctx context.Context, x *executor) ([]models.ChangeRecord, error)
}

// BidAdjustmentRule rewrites keyword bids for keywords matching the volume
// and ACOS bounds.
type BidAdjustmentRule struct {
	MinImpressions *int64
	MinClicks      *int64
	MaxAcos        *decimal.Decimal
	MinAcos        *decimal.Decimal
	Bid            Adjustment
}

// KeywordAutomationRule pauses keywords whose ACOS exceeds MaxAcos once they
// have enough traffic to judge.
type KeywordAutomationRule struct {
	PauseUnderperforming bool
	MinImpressions       int64
	MinClicks            int64
	MaxAcos              decimal.Decimal
}

// BudgetControlRule rewrites daily budgets of campaigns inside the ROAS bounds.
type BudgetControlRule struct {
	MinRoas *decimal.Decimal
	MaxRoas *decimal.Decimal
	Budget  Adjustment
}

// NegativeKeywordRule excludes search terms that spend without converting.
type NegativeKeywordRule struct {
	MinImpressions int64
	MinClicks      int64
	MaxAcos        decimal.Decimal
	MatchType      string
}

func (BidAdjustmentRule) Type() string     { return models.RuleTypeBidAdjustment }
func (KeywordAutomationRule) Type() string { return models.RuleTypeKeywordAutomation }
func (BudgetControlRule) Type() string     { return models.RuleTypeBudgetControl }
func (NegativeKeywordRule) Type() string   { return models.RuleTypeNegativeKeyword }

func (r BidAdjustmentRule) apply(ctx context.Context, x *executor) ([]models.ChangeRecord, error) {
	return x.adjustBids(ctx, r)
}

func (r KeywordAutomationRule) apply(ctx context.Context, x *executor) ([]models.ChangeRecord, error) {
	return x.automateKeywords(ctx, r)
}

func (r BudgetControlRule) apply(ctx context.Context, x *executor) ([]models.ChangeRecord, error) {
	return x.controlBudgets(ctx, r)
}

func (r NegativeKeywordRule) apply(ctx context.Context, x *executor) ([]models.ChangeRecord, error) {
	return x.addNegativeKeywords(ctx, r)
}

type ruleConditions struct {
	MinImpressions *int64           `json:"minImpressions"`
	MinClicks      *int64           `json:"minClicks"`
	MaxAcos        *decimal.Decimal `json:"maxAcos"`
	MinAcos        *decimal.Decimal `json:"minAcos"`
	MinRoas        *decimal.Decimal `json:"minRoas"`
	MaxRoas        *decimal.Decimal `json:"maxRoas"`
}

type ruleActions struct {
	AdjustmentType  string           `json:"adjustmentType"`
	AdjustmentValue *decimal.Decimal `json:"adjustmentValue"`
	MinBid          *decimal.Decimal `json:"minBid"`
	MaxBid          *decimal.Decimal `json:"maxBid"`

	BudgetAdjustmentType  string           `json:"budgetAdjustmentType"`
	BudgetAdjustmentValue *decimal.Decimal `json:"budgetAdjustmentValue"`
	MinBudget             *decimal.Decimal `json:"minBudget"`
	MaxBudget             *decimal.Decimal `json:"maxBudget"`

	PauseUnderperforming bool   `json:"pauseUnderperforming"`
	MatchType            string `json:"matchType"`
}

// ParseRule decodes the stored conditions and actions into the typed variant
// for the rule's type.
func ParseRule(rule *models.OptimizationRule) (Rule, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}
	var conds ruleConditions
	if err := decodeRuleJSON(rule.Conditions, &conds); err != nil {
		return nil, fmt.Errorf("%w: conditions: %v", ErrInvalidRule, err)
	}
	var acts ruleActions
	if err := decodeRuleJSON(rule.Actions, &acts); err != nil {
		return nil, fmt.Errorf("%w: actions: %v", ErrInvalidRule, err)
	}

	switch strings.ToUpper(strings.TrimSpace(rule.RuleType)) {
	case models.RuleTypeBidAdjustment:
		adj, err := newAdjustment(acts.AdjustmentType, acts.AdjustmentValue, acts.MinBid, acts.MaxBid)
		if err != nil {
			return nil, fmt.Errorf("%w: bid: %v", ErrInvalidRule, err)
		}
		if err := checkBounds(conds.MinAcos, conds.MaxAcos); err != nil {
			return nil, fmt.Errorf("%w: acos: %v", ErrInvalidRule, err)
		}
		return BidAdjustmentRule{
			MinImpressions: conds.MinImpressions,
			MinClicks:      conds.MinClicks,
			MaxAcos:        conds.MaxAcos,
			MinAcos:        conds.MinAcos,
			Bid:            adj,
		}, nil
	case models.RuleTypeKeywordAutomation:
		return KeywordAutomationRule{
			PauseUnderperforming: acts.PauseUnderperforming,
			MinImpressions:       int64Or(conds.MinImpressions, 100),
			MinClicks:            int64Or(conds.MinClicks, 5),
			MaxAcos:              decimalOr(conds.MaxAcos, decimal.NewFromInt(50)),
		}, nil
	case models.RuleTypeBudgetControl:
		adj, err := newAdjustment(acts.BudgetAdjustmentType, acts.BudgetAdjustmentValue, acts.MinBudget, acts.MaxBudget)
		if err != nil {
			return nil, fmt.Errorf("%w: budget: %v", ErrInvalidRule, err)
		}
		if err := checkBounds(conds.MinRoas, conds.MaxRoas); err != nil {
			return nil, fmt.Errorf("%w: roas: %v", ErrInvalidRule, err)
		}
		return BudgetControlRule{
			MinRoas: conds.MinRoas,
			MaxRoas: conds.MaxRoas,
			Budget:  adj,
		}, nil
	case models.RuleTypeNegativeKeyword:
		matchType, err := normalizeNegativeMatchType(acts.MatchType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
		return NegativeKeywordRule{
			MinImpressions: int64Or(conds.MinImpressions, 10),
			MinClicks:      int64Or(conds.MinClicks, 1),
			MaxAcos:        decimalOr(conds.MaxAcos, decimal.NewFromInt(100)),
			MatchType:      matchType,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, rule.RuleType)
	}
}

func decodeRuleJSON(raw []byte, out any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func newAdjustment(kind string, value, minValue, maxValue *decimal.Decimal) (Adjustment, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	switch kind {
	case AdjustmentPercentage, AdjustmentFixed, AdjustmentSet:
	case "":
		return Adjustment{}, errors.New("adjustment type is required")
	default:
		return Adjustment{}, fmt.Errorf("unsupported adjustment type %q", kind)
	}
	if value == nil {
		return Adjustment{}, errors.New("adjustment value is required")
	}
	if err := checkBounds(minValue, maxValue); err != nil {
		return Adjustment{}, err
	}
	return Adjustment{Type: kind, Value: *value, Min: minValue, Max: maxValue}, nil
}

func checkBounds(minValue, maxValue *decimal.Decimal) error {
	if minValue != nil && maxValue != nil && minValue.GreaterThan(*maxValue) {
		return fmt.Errorf("min %s is greater than max %s", minValue, maxValue)
	}
	return nil
}

func normalizeNegativeMatchType(v string) (string, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	switch v {
	case "":
		return MatchNegativePhrase, nil
	case MatchNegativePhrase, MatchNegativeExact:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported negative match type %q", v)
	}
}

func int64Or(v *int64, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	return *v
}

func decimalOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return *v
}
