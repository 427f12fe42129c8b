package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/ManuelReschke/JobFox/internal/pkg/currency"
)

const (
	UpgradeThreshold   = 0.8
	DowngradeThreshold = 0.3

	Included = "✓"
	Excluded = "✗"
)

// LocalizedPlan is a tier quoted in one currency for one billing cycle.
type LocalizedPlan struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Currency       string       `json:"currency"`
	Cycle          BillingCycle `json:"cycle"`
	Price          float64      `json:"price"`
	FormattedPrice string       `json:"formattedPrice"`
	BasePriceUSD   float64      `json:"basePriceUSD"`
	YearlyDiscount int          `json:"yearlyDiscount"`
	Features       Features     `json:"features"`
	IsPopular      bool         `json:"isPopular"`
	IsEnterprise   bool         `json:"isEnterprise"`
}

type Quote struct {
	Currency     string  `json:"currency"`
	Price        float64 `json:"price"`
	Formatted    string  `json:"formatted"`
	SavingsLabel string  `json:"savingsLabel,omitempty"`
}

type Savings struct {
	Currency          string  `json:"currency"`
	MonthlyTotal      float64 `json:"monthlyTotal"`
	YearlyPrice       float64 `json:"yearlyPrice"`
	Savings           float64 `json:"savings"`
	SavingsPercentage int     `json:"savingsPercentage"`
	HasSavings        bool    `json:"hasSavings"`
}

type FeatureValue struct {
	TierID string `json:"tierId"`
	Value  string `json:"value"`
}

type FeatureRow struct {
	Feature string         `json:"feature"`
	Label   string         `json:"label"`
	Values  []FeatureValue `json:"values"`
}

// Usage is the consumption of one metered feature. A zero Limit means the
// tier's own limit applies.
type Usage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

type Recommendation struct {
	ShouldUpgrade   bool     `json:"shouldUpgrade"`
	ShouldDowngrade bool     `json:"shouldDowngrade"`
	RecommendedTier string   `json:"recommendedTier,omitempty"`
	Reasons         []string `json:"reasons"`
}

type feature struct {
	key     string
	label   string
	metered bool
	value   func(Features) string
	limit   func(Features) int
}

func count(get func(Features) int) func(Features) string {
	return func(f Features) string { return fmt.Sprintf("%d", get(f)) }
}

func flag(get func(Features) bool) func(Features) string {
	return func(f Features) string {
		if get(f) {
			return Included
		}
		return Excluded
	}
}

func optional(get func(Features) *bool) func(Features) bool {
	return func(f Features) bool {
		v := get(f)
		return v != nil && *v
	}
}

var features = []feature{
	{key: "job_applications", label: "Job applications", metered: true,
		value: count(func(f Features) int { return f.JobApplications }),
		limit: func(f Features) int { return f.JobApplications }},
	{key: "cv_uploads", label: "CV uploads", metered: true,
		value: count(func(f Features) int { return f.CVUploads }),
		limit: func(f Features) int { return f.CVUploads }},
	{key: "email_accounts", label: "Email accounts", metered: true,
		value: count(func(f Features) int { return f.EmailAccounts }),
		limit: func(f Features) int { return f.EmailAccounts }},
	{key: "ai_requests", label: "AI requests", metered: true,
		value: count(func(f Features) int { return f.AIRequests }),
		limit: func(f Features) int { return f.AIRequests }},
	{key: "priority_support", label: "Priority support",
		value: flag(func(f Features) bool { return f.PrioritySupport })},
	{key: "advanced_analytics", label: "Advanced analytics",
		value: flag(func(f Features) bool { return f.AdvancedAnalytics })},
	{key: "custom_templates", label: "Custom templates",
		value: flag(func(f Features) bool { return f.CustomTemplates })},
	{key: "api_access", label: "API access",
		value: flag(optional(func(f Features) *bool { return f.APIAccess }))},
	{key: "white_label", label: "White label",
		value: flag(optional(func(f Features) *bool { return f.WhiteLabel }))},
}

// Calculator projects catalog tiers through a converter.
type Calculator struct {
	catalog *Catalog
	conv    *currency.Converter
}

func NewCalculator(catalog *Catalog, conv *currency.Converter) *Calculator {
	return &Calculator{catalog: catalog, conv: conv}
}

// EffectiveYearlyDiscount is the larger of the declared discount and the one
// implied by the tier's prices, never negative.
func EffectiveYearlyDiscount(t Tier) int {
	computed := 0
	if annual := t.BasePrice.Monthly * 12; annual > 0 && t.BasePrice.Yearly > 0 {
		computed = int(math.Round((annual - t.BasePrice.Yearly) / annual * 100))
	}
	explicit := 0
	if t.YearlyDiscount != nil {
		explicit = int(math.Round(*t.YearlyDiscount))
	}
	return max(explicit, computed, 0)
}

func (c *Calculator) ToLocalizedPlan(t Tier, code string, cycle BillingCycle) LocalizedPlan {
	code = currency.Normalize(code)
	usd, used := t.Price(cycle)
	price := c.conv.FromUSD(usd, code)

	return LocalizedPlan{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Currency:       code,
		Cycle:          used,
		Price:          price,
		FormattedPrice: c.conv.Format(price, code),
		BasePriceUSD:   usd,
		YearlyDiscount: EffectiveYearlyDiscount(t),
		Features:       t.clone().Features,
		IsPopular:      t.IsPopular,
		IsEnterprise:   t.IsEnterprise,
	}
}

func (c *Calculator) LocalizedPlans(code string, cycle BillingCycle) []LocalizedPlan {
	tiers := c.catalog.All()
	out := make([]LocalizedPlan, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, c.ToLocalizedPlan(t, code, cycle))
	}
	return out
}

// CompareAcrossCurrencies quotes one tier in each requested currency. An
// unknown tier yields an empty slice.
func (c *Calculator) CompareAcrossCurrencies(tierID string, codes []string, cycle BillingCycle) []Quote {
	t, ok := c.catalog.ByID(tierID)
	if !ok {
		return []Quote{}
	}

	discount := EffectiveYearlyDiscount(t)
	out := make([]Quote, 0, len(codes))
	for _, code := range codes {
		code = currency.Normalize(code)
		if code == "" {
			continue
		}
		plan := c.ToLocalizedPlan(t, code, cycle)
		q := Quote{Currency: code, Price: plan.Price, Formatted: plan.FormattedPrice}
		if plan.Cycle == Yearly && discount > 0 {
			q.SavingsLabel = fmt.Sprintf("Save %d%%", discount)
		}
		out = append(out, q)
	}
	return out
}

// AnnualSavings compares twelve monthly payments with the yearly price in
// code. Amounts are rounded to cents.
func (c *Calculator) AnnualSavings(tierID, code string) Savings {
	code = currency.Normalize(code)
	out := Savings{Currency: code}

	t, ok := c.catalog.ByID(tierID)
	if !ok {
		return out
	}

	out.MonthlyTotal = roundCents(c.conv.FromUSD(t.BasePrice.Monthly, code) * 12)
	out.YearlyPrice = roundCents(c.conv.FromUSD(t.BasePrice.Yearly, code))

	savings := roundCents(out.MonthlyTotal - out.YearlyPrice)
	if savings <= 0 || out.MonthlyTotal <= 0 {
		return out
	}
	out.Savings = savings
	out.SavingsPercentage = int(math.Round(savings / out.MonthlyTotal * 100))
	out.HasSavings = true
	return out
}

// FeatureMatrix returns one row per tracked feature with a value per tier
// in catalog order.
func (c *Calculator) FeatureMatrix() []FeatureRow {
	tiers := c.catalog.All()
	rows := make([]FeatureRow, 0, len(features))
	for _, f := range features {
		row := FeatureRow{Feature: f.key, Label: f.label, Values: make([]FeatureValue, 0, len(tiers))}
		for _, t := range tiers {
			row.Values = append(row.Values, FeatureValue{TierID: t.ID, Value: f.value(t.Features)})
		}
		rows = append(rows, row)
	}
	return rows
}

// RecommendTierChange suggests the next tier up when any metered feature is
// at or above 80% of its limit, or the next tier down when average
// utilization is below 30%. Upgrades take precedence. The free tier is
// never downgraded.
func (c *Calculator) RecommendTierChange(currentID string, usage map[string]Usage) Recommendation {
	rec := Recommendation{Reasons: []string{}}

	ordered := c.ordered()
	idx := -1
	for i, t := range ordered {
		if t.ID == currentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rec
	}
	current := ordered[idx]

	var total float64
	var measured int
	for _, f := range features {
		if !f.metered {
			continue
		}
		u, ok := usage[f.key]
		if !ok {
			continue
		}
		limit := u.Limit
		if limit <= 0 {
			limit = f.limit(current.Features)
		}
		if limit <= 0 {
			continue
		}
		ratio := float64(u.Used) / float64(limit)
		total += ratio
		measured++
		if ratio >= UpgradeThreshold {
			rec.ShouldUpgrade = true
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("%s (%s) usage is at %d%% of the plan limit (%d/%d)",
				f.label, f.key, int(math.Round(ratio*100)), u.Used, limit))
		}
	}

	if rec.ShouldUpgrade {
		if idx+1 < len(ordered) {
			rec.RecommendedTier = ordered[idx+1].ID
		}
		return rec
	}

	if measured > 0 && !current.IsFree() {
		avg := total / float64(measured)
		if avg < DowngradeThreshold {
			rec.ShouldDowngrade = true
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("average utilization is %d%%, below the %d%% downgrade threshold",
				int(math.Round(avg*100)), int(DowngradeThreshold*100)))
			if idx > 0 {
				rec.RecommendedTier = ordered[idx-1].ID
			}
		}
	}
	return rec
}

func (c *Calculator) ordered() []Tier {
	tiers := c.catalog.All()
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].BasePrice.Monthly < tiers[j].BasePrice.Monthly
	})
	return tiers
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
