package optimization

import (
	"github.com/shopspring/decimal"

	"adsoptimizer/internal/models"
	"adsoptimizer/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// Adjustment is a PERCENTAGE, FIXED or SET change with optional clamps.
type Adjustment struct {
	Type  string
	Value decimal.Decimal
	Min   *decimal.Decimal
	Max   *decimal.Decimal
}

// ComputeAdjustedValue applies adj to current, clamps to [Min, Max] and rounds
// to cents. The result never leaves the clamp range after rounding.
func ComputeAdjustedValue(current decimal.Decimal, adj Adjustment) decimal.Decimal {
	next := current
	switch adj.Type {
	case AdjustmentPercentage:
		next = current.Mul(decimal.NewFromInt(1).Add(adj.Value.Div(hundred)))
	case AdjustmentFixed:
		next = current.Add(adj.Value)
	case AdjustmentSet:
		next = adj.Value
	}
	if adj.Min != nil && next.LessThan(*adj.Min) {
		next = *adj.Min
	}
	if adj.Max != nil && next.GreaterThan(*adj.Max) {
		next = *adj.Max
	}
	next = next.Round(2)
	if adj.Min != nil {
		if lo := adj.Min.RoundCeil(2); next.LessThan(lo) {
			next = lo
		}
	}
	if adj.Max != nil {
		if hi := adj.Max.RoundFloor(2); next.GreaterThan(hi) {
			next = hi
		}
	}
	return next
}

// Performance is the trailing traffic of one candidate entity.
type Performance struct {
	Impressions int64
	Clicks      int64
	Spend       decimal.Decimal
	Sales       decimal.Decimal
}

// ACOS is spend / sales * 100. ok is false when there are no sales.
func (p Performance) ACOS() (decimal.Decimal, bool) {
	if p.Sales.Sign() <= 0 {
		return decimal.Zero, false
	}
	return p.Spend.Div(p.Sales).Mul(hundred), true
}

// ROAS is sales / spend. ok is false when nothing was spent.
func (p Performance) ROAS() (decimal.Decimal, bool) {
	if p.Spend.Sign() <= 0 {
		return decimal.Zero, false
	}
	return p.Sales.Div(p.Spend), true
}

func keywordPerformance(k models.Keyword) Performance {
	return Performance{Impressions: k.Impressions, Clicks: k.Clicks, Spend: k.Spend, Sales: k.Sales}
}

func campaignPerformance(c models.Campaign) Performance {
	return Performance{Impressions: c.Impressions, Clicks: c.Clicks, Spend: c.Spend, Sales: c.Sales}
}

func searchTermPerformance(st repository.SearchTermRow) Performance {
	return Performance{Impressions: st.Impressions, Clicks: st.Clicks, Spend: st.Spend, Sales: st.Sales}
}

// inBounds reports whether v satisfies the optional inclusive bounds. An
// undefined value fails as soon as any bound is present.
func inBounds(v decimal.Decimal, defined bool, lo, hi *decimal.Decimal) bool {
	if lo == nil && hi == nil {
		return true
	}
	if !defined {
		return false
	}
	if lo != nil && v.LessThan(*lo) {
		return false
	}
	if hi != nil && v.GreaterThan(*hi) {
		return false
	}
	return true
}

func atLeast(v int64, minimum *int64) bool {
	return minimum == nil || v >= *minimum
}

func (r BidAdjustmentRule) matches(p Performance) bool {
	if !atLeast(p.Impressions, r.MinImpressions) || !atLeast(p.Clicks, r.MinClicks) {
		return false
	}
	acos, ok := p.ACOS()
	return inBounds(acos, ok, r.MinAcos, r.MaxAcos)
}

func (r KeywordAutomationRule) underperforming(p Performance) bool {
	if p.Impressions < r.MinImpressions || p.Clicks < r.MinClicks {
		return false
	}
	acos, ok := p.ACOS()
	return ok && acos.GreaterThan(r.MaxAcos)
}

func (r BudgetControlRule) matches(p Performance) bool {
	roas, ok := p.ROAS()
	return inBounds(roas, ok, r.MinRoas, r.MaxRoas)
}

func (r NegativeKeywordRule) matches(st repository.SearchTermRow) bool {
	if st.Conversions != 0 {
		return false
	}
	p := searchTermPerformance(st)
	if p.Impressions < r.MinImpressions || p.Clicks < r.MinClicks {
		return false
	}
	acos, ok := p.ACOS()
	return ok && acos.GreaterThan(r.MaxAcos)
}
