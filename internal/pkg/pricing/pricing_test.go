package pricing

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuelReschke/JobFox/internal/pkg/currency"
)

type fixedRates map[string]float64

func (r fixedRates) Rate(code string) (float64, bool) {
	if code == currency.USD {
		return 1, true
	}
	v, ok := r[code]
	return v, ok
}

func testCalculator(c *Catalog) *Calculator {
	if c == nil {
		c = NewCatalog(nil)
	}
	return NewCalculator(c, currency.NewConverter(fixedRates{"EUR": 0.5, "NGN": 1000}))
}

type fakeSource struct {
	mu      sync.Mutex
	tiers   []Tier
	err     error
	saveErr error
	saved   []Tier
}

func (s *fakeSource) FetchTiers(context.Context) ([]Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out, nil
}

func (s *fakeSource) SaveTier(_ context.Context, t Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, t)
	s.tiers = append(s.tiers, t)
	return nil
}

var errBackend = errors.New("backend down")
