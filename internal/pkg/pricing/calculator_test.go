package pricing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLocalizedPlan(t *testing.T) {
	calc := testCalculator(nil)
	pro, _ := calc.catalog.ByID("professional")

	plan := calc.ToLocalizedPlan(pro, "usd", Yearly)
	assert.Equal(t, "USD", plan.Currency)
	assert.Equal(t, Yearly, plan.Cycle)
	assert.Equal(t, 299.99, plan.Price)
	assert.Equal(t, 299.99, plan.BasePriceUSD)
	assert.Equal(t, 17, plan.YearlyDiscount)
	assert.True(t, strings.Contains(plan.FormattedPrice, "299.99"))
	assert.True(t, plan.IsPopular)

	plan = calc.ToLocalizedPlan(pro, "NGN", Monthly)
	assert.Equal(t, 29990.0, plan.Price)
	assert.Equal(t, 29.99, plan.BasePriceUSD)

	free, _ := calc.catalog.ByID("free")
	plan = calc.ToLocalizedPlan(free, "EUR", Quarterly)
	assert.Equal(t, Monthly, plan.Cycle)
	assert.Equal(t, 0.0, plan.Price)
	assert.Equal(t, 0, plan.YearlyDiscount)
}

func TestLocalizedPlansFollowCatalogOrder(t *testing.T) {
	plans := testCalculator(nil).LocalizedPlans("EUR", Monthly)
	require.Len(t, plans, 4)
	assert.Equal(t, "free", plans[0].ID)
	assert.Equal(t, "enterprise", plans[3].ID)
	assert.Equal(t, 15.0, plans[2].Price)
}

func TestEffectiveYearlyDiscount(t *testing.T) {
	cases := []struct {
		name string
		tier Tier
		want int
	}{
		{"computed from prices", Tier{BasePrice: BasePrice{Monthly: 29.99, Yearly: 299.99}}, 17},
		{"explicit wins when larger", Tier{BasePrice: BasePrice{Monthly: 29.99, Yearly: 299.99}, YearlyDiscount: ptrFloat(25)}, 25},
		{"computed wins when larger", Tier{BasePrice: BasePrice{Monthly: 10, Yearly: 60}, YearlyDiscount: ptrFloat(10)}, 50},
		{"yearly above twelve months floors at zero", Tier{BasePrice: BasePrice{Monthly: 10, Yearly: 130}}, 0},
		{"free tier", Tier{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EffectiveYearlyDiscount(tc.tier))
		})
	}
}

func TestCompareAcrossCurrencies(t *testing.T) {
	calc := testCalculator(nil)

	quotes := calc.CompareAcrossCurrencies("professional", []string{"USD", "eur", ""}, Yearly)
	require.Len(t, quotes, 2)
	assert.Equal(t, "USD", quotes[0].Currency)
	assert.Equal(t, 299.99, quotes[0].Price)
	assert.Equal(t, "Save 17%", quotes[0].SavingsLabel)
	assert.Equal(t, "EUR", quotes[1].Currency)
	assert.Equal(t, 150.0, quotes[1].Price)

	monthly := calc.CompareAcrossCurrencies("professional", []string{"USD"}, Monthly)
	require.Len(t, monthly, 1)
	assert.Empty(t, monthly[0].SavingsLabel)

	free := calc.CompareAcrossCurrencies("free", []string{"USD"}, Yearly)
	require.Len(t, free, 1)
	assert.Empty(t, free[0].SavingsLabel)

	assert.Empty(t, calc.CompareAcrossCurrencies("missing", []string{"USD"}, Yearly))
	assert.NotNil(t, calc.CompareAcrossCurrencies("missing", []string{"USD"}, Yearly))
}

func TestAnnualSavings(t *testing.T) {
	calc := testCalculator(nil)

	s := calc.AnnualSavings("professional", "USD")
	assert.Equal(t, 359.88, s.MonthlyTotal)
	assert.Equal(t, 299.99, s.YearlyPrice)
	assert.Equal(t, 59.89, s.Savings)
	assert.Equal(t, 17, s.SavingsPercentage)
	assert.True(t, s.HasSavings)

	s = calc.AnnualSavings("professional", "NGN")
	assert.Equal(t, 359880.0, s.MonthlyTotal)
	assert.Equal(t, 299990.0, s.YearlyPrice)
	assert.Equal(t, 59890.0, s.Savings)
	assert.Equal(t, 17, s.SavingsPercentage)

	s = calc.AnnualSavings("free", "USD")
	assert.False(t, s.HasSavings)
	assert.Equal(t, 0.0, s.Savings)
	assert.Equal(t, 0, s.SavingsPercentage)

	s = calc.AnnualSavings("missing", "eur")
	assert.Equal(t, Savings{Currency: "EUR"}, s)
}

func TestAnnualSavingsNeverNegative(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.ReplaceCatalog([]Tier{{ID: "odd", Name: "Odd", BasePrice: BasePrice{Monthly: 10, Yearly: 150}}}))

	s := testCalculator(c).AnnualSavings("odd", "USD")
	assert.Equal(t, 120.0, s.MonthlyTotal)
	assert.Equal(t, 0.0, s.Savings)
	assert.Equal(t, 0, s.SavingsPercentage)
	assert.False(t, s.HasSavings)
}

func TestFeatureMatrix(t *testing.T) {
	rows := testCalculator(nil).FeatureMatrix()
	require.Len(t, rows, 9)

	byKey := map[string]FeatureRow{}
	for _, r := range rows {
		require.Len(t, r.Values, 4)
		byKey[r.Feature] = r
	}

	jobs := byKey["job_applications"]
	assert.Equal(t, "free", jobs.Values[0].TierID)
	assert.Equal(t, "10", jobs.Values[0].Value)
	assert.Equal(t, "200", jobs.Values[2].Value)

	support := byKey["priority_support"]
	assert.Equal(t, Excluded, support.Values[0].Value)
	assert.Equal(t, Included, support.Values[2].Value)

	api := byKey["api_access"]
	assert.Equal(t, Excluded, api.Values[0].Value)
	assert.Equal(t, Excluded, api.Values[2].Value)
	assert.Equal(t, Included, api.Values[3].Value)
}

func TestRecommendTierChange(t *testing.T) {
	calc := testCalculator(nil)

	t.Run("upgrade at eighty percent", func(t *testing.T) {
		rec := calc.RecommendTierChange("basic", map[string]Usage{
			"job_applications": {Used: 45, Limit: 50},
			"cv_uploads":       {Used: 0, Limit: 3},
		})
		assert.True(t, rec.ShouldUpgrade)
		assert.False(t, rec.ShouldDowngrade)
		assert.Equal(t, "professional", rec.RecommendedTier)
		require.Len(t, rec.Reasons, 1)
		assert.Contains(t, rec.Reasons[0], "job_applications")
		assert.Contains(t, rec.Reasons[0], "45/50")
	})

	t.Run("limit falls back to tier", func(t *testing.T) {
		rec := calc.RecommendTierChange("basic", map[string]Usage{"ai_requests": {Used: 80}})
		assert.True(t, rec.ShouldUpgrade)
		assert.Equal(t, "professional", rec.RecommendedTier)
	})

	t.Run("downgrade on low average", func(t *testing.T) {
		rec := calc.RecommendTierChange("professional", map[string]Usage{
			"job_applications": {Used: 10},
			"cv_uploads":       {Used: 1},
		})
		assert.False(t, rec.ShouldUpgrade)
		assert.True(t, rec.ShouldDowngrade)
		assert.Equal(t, "basic", rec.RecommendedTier)
		assert.Len(t, rec.Reasons, 1)
	})

	t.Run("free tier never downgrades", func(t *testing.T) {
		rec := calc.RecommendTierChange("free", map[string]Usage{"job_applications": {Used: 0}})
		assert.False(t, rec.ShouldDowngrade)
		assert.Empty(t, rec.RecommendedTier)
	})

	t.Run("no tier above enterprise", func(t *testing.T) {
		rec := calc.RecommendTierChange("enterprise", map[string]Usage{"job_applications": {Used: 999}})
		assert.True(t, rec.ShouldUpgrade)
		assert.Empty(t, rec.RecommendedTier)
	})

	t.Run("moderate usage keeps plan", func(t *testing.T) {
		rec := calc.RecommendTierChange("basic", map[string]Usage{"job_applications": {Used: 25}})
		assert.False(t, rec.ShouldUpgrade)
		assert.False(t, rec.ShouldDowngrade)
		assert.Empty(t, rec.Reasons)
	})

	t.Run("unknown features are ignored", func(t *testing.T) {
		rec := calc.RecommendTierChange("professional", map[string]Usage{"storage_gb": {Used: 0, Limit: 10}})
		assert.False(t, rec.ShouldDowngrade)
	})

	t.Run("unknown tier", func(t *testing.T) {
		rec := calc.RecommendTierChange("missing", map[string]Usage{"job_applications": {Used: 100}})
		assert.Equal(t, Recommendation{Reasons: []string{}}, rec)
	})
}

func TestRecommendationUsesPriceOrder(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.ReplaceCatalog([]Tier{
		{ID: "top", Name: "Top", BasePrice: BasePrice{Monthly: 100}, Features: Features{JobApplications: 1000}},
		{ID: "low", Name: "Low", BasePrice: BasePrice{Monthly: 5}, Features: Features{JobApplications: 10}},
		{ID: "mid", Name: "Mid", BasePrice: BasePrice{Monthly: 20}, Features: Features{JobApplications: 100}},
	}))

	rec := testCalculator(c).RecommendTierChange("low", map[string]Usage{"job_applications": {Used: 9}})
	assert.Equal(t, "mid", rec.RecommendedTier)

	rec = testCalculator(c).RecommendTierChange("top", map[string]Usage{"job_applications": {Used: 1}})
	assert.Equal(t, "mid", rec.RecommendedTier)
}
