// Package engine is the service object the HTTP layer talks to. It ties the
// rate store, the location cascade and the tier catalog together and owns
// the visitor-scoped detection state.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ManuelReschke/JobFox/internal/pkg/cache"
	"github.com/ManuelReschke/JobFox/internal/pkg/currency"
	"github.com/ManuelReschke/JobFox/internal/pkg/geo"
	"github.com/ManuelReschke/JobFox/internal/pkg/pricing"
)

// Visitor scoped keys. The shared rate keys live in the currency package.
const (
	KeyLocation = "pricing:location"
	KeyCurrency = "pricing:currency"
)

const (
	SourceOverride = "override"
	SourceCached   = "cache"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Detection is the currency chosen for a visitor and how it was chosen.
type Detection struct {
	Currency string       `json:"currency"`
	Source   string       `json:"source"`
	Location geo.Location `json:"location"`
}

// State is the shared mutable state behind an Engine.
type State struct {
	Rates    *currency.RateStore
	Catalog  *pricing.Catalog
	Resolver *geo.Resolver
}

type Engine struct {
	state State
	conv  *currency.Converter
	calc  *pricing.Calculator
}

func New(state State) *Engine {
	if state.Rates == nil {
		state.Rates = currency.NewRateStore(nil, nil)
	}
	if state.Catalog == nil {
		state.Catalog = pricing.NewCatalog(nil)
	}
	if state.Resolver == nil {
		state.Resolver = geo.NewResolver(currency.IsSupported, geo.TimezoneStrategy(), geo.LocaleStrategy())
	}
	conv := currency.NewConverter(state.Rates)
	return &Engine{
		state: state,
		conv:  conv,
		calc:  pricing.NewCalculator(state.Catalog, conv),
	}
}

// Start refreshes stale rates and loads the remote catalog. Failures leave
// the compiled-in defaults in place.
func (e *Engine) Start(ctx context.Context) {
	e.RefreshRates(ctx)
	if err := e.state.Catalog.LoadRemote(ctx); err != nil && !errors.Is(err, pricing.ErrNoSource) {
		log.Printf("Warning: [Engine] using default catalog: %v", err)
	}
}

func (e *Engine) RefreshRates(ctx context.Context) bool {
	return e.state.Rates.RefreshIfStale(ctx)
}

func (e *Engine) RatesSnapshot() currency.Snapshot {
	return e.state.Rates.Snapshot()
}

// DetectUserCurrency picks the visitor's currency: a stored manual choice
// first, then a cached location, then the detection cascade. visitor may be
// nil, in which case nothing is read or written. key groups concurrent
// detections for the same visitor.
func (e *Engine) DetectUserCurrency(ctx context.Context, visitor cache.Store, key string, sig geo.Signals) Detection {
	cached, hasCached := e.cachedLocation(ctx, visitor)

	if visitor != nil {
		code, ok, err := visitor.Get(ctx, KeyCurrency)
		if err != nil {
			log.Printf("Warning: [Engine] could not read currency override: %v", err)
		}
		if ok && currency.IsSupported(code) {
			return Detection{Currency: currency.Normalize(code), Source: SourceOverride, Location: cached}
		}
	}

	if hasCached {
		return Detection{Currency: cached.Currency, Source: SourceCached, Location: cached}
	}

	res := e.state.Resolver.Resolve(ctx, key, sig)
	if res.Cacheable && visitor != nil {
		raw, err := json.Marshal(res.Location)
		if err == nil {
			err = visitor.Set(ctx, KeyLocation, string(raw))
		}
		if err != nil {
			log.Printf("Warning: [Engine] could not cache location: %v", err)
		}
	}
	return Detection{Currency: res.Location.Currency, Source: res.Source, Location: res.Location}
}

func (e *Engine) cachedLocation(ctx context.Context, visitor cache.Store) (geo.Location, bool) {
	if visitor == nil {
		return geo.Location{}, false
	}
	raw, ok, err := visitor.Get(ctx, KeyLocation)
	if err != nil {
		log.Printf("Warning: [Engine] could not read cached location: %v", err)
		return geo.Location{}, false
	}
	if !ok {
		return geo.Location{}, false
	}
	var loc geo.Location
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		log.Printf("Warning: [Engine] ignoring malformed cached location: %v", err)
		return geo.Location{}, false
	}
	loc.Currency = currency.Normalize(loc.Currency)
	if !currency.IsSupported(loc.Currency) {
		return geo.Location{}, false
	}
	return loc, true
}

// SetUserCurrency stores a manual currency choice for the visitor.
func (e *Engine) SetUserCurrency(ctx context.Context, visitor cache.Store, code string) (string, error) {
	code = currency.Normalize(code)
	if !currency.IsSupported(code) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	if visitor == nil {
		return code, nil
	}
	if err := visitor.Set(ctx, KeyCurrency, code); err != nil {
		return "", fmt.Errorf("store currency: %w", err)
	}
	return code, nil
}

func (e *Engine) FormatCurrency(amount float64, code string) string {
	return e.conv.Format(amount, code)
}

func (e *Engine) Convert(amount float64, from, to string) float64 {
	return e.conv.Convert(amount, from, to)
}

// CurrencyRate is a supported currency with its current rate.
type CurrencyRate struct {
	currency.Info
	Example string `json:"example"`
}

// Currencies lists supported currencies, USD first.
func (e *Engine) Currencies() []CurrencyRate {
	codes := currency.Codes()
	out := make([]CurrencyRate, 0, len(codes))
	for _, code := range codes {
		info, ok := e.conv.Info(code)
		if !ok {
			continue
		}
		out = append(out, CurrencyRate{Info: info, Example: e.conv.Format(e.conv.FromUSD(29.99, code), code)})
	}
	return out
}

// ToLocalizedPlan quotes one tier. ok is false for an unknown tier.
func (e *Engine) ToLocalizedPlan(tierID, code string, cycle pricing.BillingCycle) (pricing.LocalizedPlan, bool) {
	t, ok := e.state.Catalog.ByID(tierID)
	if !ok {
		return pricing.LocalizedPlan{}, false
	}
	return e.calc.ToLocalizedPlan(t, code, cycle), true
}

func (e *Engine) LocalizedPlans(code string, cycle pricing.BillingCycle) []pricing.LocalizedPlan {
	return e.calc.LocalizedPlans(code, cycle)
}

func (e *Engine) CompareAcrossCurrencies(tierID string, codes []string, cycle pricing.BillingCycle) []pricing.Quote {
	return e.calc.CompareAcrossCurrencies(tierID, codes, cycle)
}

func (e *Engine) AnnualSavings(tierID, code string) pricing.Savings {
	return e.calc.AnnualSavings(tierID, code)
}

func (e *Engine) FeatureMatrix() []pricing.FeatureRow {
	return e.calc.FeatureMatrix()
}

func (e *Engine) RecommendTierChange(tierID string, usage map[string]pricing.Usage) pricing.Recommendation {
	return e.calc.RecommendTierChange(tierID, usage)
}

// Tiers returns the raw USD catalog.
func (e *Engine) Tiers() []pricing.Tier {
	return e.state.Catalog.All()
}

func (e *Engine) SaveTier(ctx context.Context, tier pricing.Tier) (pricing.Tier, error) {
	return e.state.Catalog.SaveTier(ctx, tier)
}

// RatesAge is how old the fetched rate table is, or zero when only the
// compiled-in rates are available.
func (e *Engine) RatesAge(now time.Time) time.Duration {
	snap := e.state.Rates.Snapshot()
	if snap.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(snap.FetchedAt)
}

// CatalogRemote reports whether the catalog was loaded from its source.
func (e *Engine) CatalogRemote() bool {
	return e.state.Catalog.IsRemote()
}

// ReloadCatalog reloads tiers from the catalog source.
func (e *Engine) ReloadCatalog(ctx context.Context) error {
	return e.state.Catalog.LoadRemote(ctx)
}
