package currency

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ManuelReschke/JobFox/internal/pkg/cache"
)

// Keys under which the rate snapshot is persisted in the shared store.
const (
	KeyRates          = "pricing:rates"
	KeyRatesFetchedAt = "pricing:rates_fetched_at"
)

const (
	// DefaultMaxAge is how old a snapshot may get before a refresh fetches.
	DefaultMaxAge = 24 * time.Hour
	// DefaultRetryAfter is the pause after a failed fetch before the next try.
	DefaultRetryAfter = time.Hour
)

// Fetcher loads a USD based rate table from an external FX API.
type Fetcher interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// Snapshot is a point-in-time copy of the rate table.
type Snapshot struct {
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// RateStore keeps the in-memory rate table fresh. A failed refresh never
// touches the previous table: stale rates are preferred over no rates.
type RateStore struct {
	fetcher    Fetcher
	store      cache.Store
	now        func() time.Time
	maxAge     time.Duration
	retryAfter time.Duration

	loadOnce sync.Once
	group    singleflight.Group

	mu          sync.RWMutex
	rates       map[string]float64
	fetchedAt   time.Time
	lastFailure time.Time
}

// Option configures a RateStore in NewRateStore.
type Option func(*RateStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *RateStore) { s.now = now }
}

// WithMaxAge sets the freshness window.
func WithMaxAge(d time.Duration) Option {
	return func(s *RateStore) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithRetryAfter sets how long a failed fetch suppresses further attempts.
func WithRetryAfter(d time.Duration) Option {
	return func(s *RateStore) {
		if d >= 0 {
			s.retryAfter = d
		}
	}
}

// NewRateStore starts from the compiled-in rates. fetcher and store may be nil.
func NewRateStore(fetcher Fetcher, store cache.Store, opts ...Option) *RateStore {
	s := &RateStore{
		fetcher:    fetcher,
		store:      store,
		now:        time.Now,
		maxAge:     DefaultMaxAge,
		retryAfter: DefaultRetryAfter,
		rates:      defaultRates(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rate returns units of code per 1 USD. ok is false for unknown codes.
func (s *RateStore) Rate(code string) (float64, bool) {
	code = Normalize(code)
	if code == USD {
		return 1, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rates[code]
	if !ok || r <= 0 {
		return 0, false
	}
	return r, true
}

// Snapshot returns a copy of the current table.
func (s *RateStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rates := make(map[string]float64, len(s.rates))
	for k, v := range s.rates {
		rates[k] = v
	}
	return Snapshot{Rates: rates, FetchedAt: s.fetchedAt}
}

// IsStale reports whether the table is older than the freshness window or
// was never fetched.
func (s *RateStore) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleLocked(s.now())
}

func (s *RateStore) staleLocked(now time.Time) bool {
	return s.fetchedAt.IsZero() || now.Sub(s.fetchedAt) > s.maxAge
}

func (s *RateStore) shouldFetch() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	if !s.staleLocked(now) {
		return false
	}
	if !s.lastFailure.IsZero() && now.Sub(s.lastFailure) < s.retryAfter {
		return false
	}
	return true
}

// RefreshIfStale fetches a new table when the current one is stale. It
// reports whether the table was replaced; failures are logged, never returned.
func (s *RateStore) RefreshIfStale(ctx context.Context) bool {
	s.loadOnce.Do(func() { s.loadPersisted(ctx) })
	if s.fetcher == nil || !s.shouldFetch() {
		return false
	}
	v, _, _ := s.group.Do("refresh", func() (interface{}, error) {
		// A caller queued behind a finished refresh must not fetch again.
		if !s.shouldFetch() {
			return false, nil
		}
		return s.refresh(ctx), nil
	})
	refreshed, _ := v.(bool)
	return refreshed
}

func (s *RateStore) refresh(ctx context.Context) bool {
	fetched, err := s.fetcher.FetchRates(ctx)
	if err != nil {
		s.markFailure()
		log.Printf("Warning: [Rates] refresh failed, keeping previous rates: %v", err)
		return false
	}

	s.mu.Lock()
	merged := make(map[string]float64, len(s.rates))
	for k, v := range s.rates {
		merged[k] = v
	}
	recognized := mergeRates(merged, fetched)
	if recognized == 0 {
		s.lastFailure = s.now()
		s.mu.Unlock()
		log.Printf("Warning: [Rates] refresh returned no supported currencies, keeping previous rates")
		return false
	}
	now := s.now()
	s.rates = merged
	s.fetchedAt = now
	s.lastFailure = time.Time{}
	snapshot := Snapshot{Rates: merged, FetchedAt: now}
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	log.Printf("[Rates] refreshed %d currencies", recognized)
	return true
}

func (s *RateStore) markFailure() {
	s.mu.Lock()
	s.lastFailure = s.now()
	s.mu.Unlock()
}

// mergeRates copies supported, positive, finite rates from src into dst and
// returns how many were taken.
func mergeRates(dst, src map[string]float64) int {
	n := 0
	for code, r := range src {
		code = Normalize(code)
		if code == USD || !IsSupported(code) {
			continue
		}
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		dst[code] = r
		n++
	}
	dst[USD] = 1
	return n
}

func (s *RateStore) persist(ctx context.Context, snap Snapshot) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(snap.Rates)
	if err != nil {
		log.Printf("Warning: [Rates] could not encode snapshot: %v", err)
		return
	}
	if err := s.store.Set(ctx, KeyRates, string(raw)); err != nil {
		log.Printf("Warning: [Rates] could not persist rates: %v", err)
		return
	}
	if err := s.store.Set(ctx, KeyRatesFetchedAt, snap.FetchedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		log.Printf("Warning: [Rates] could not persist rate timestamp: %v", err)
	}
}

func (s *RateStore) loadPersisted(ctx context.Context) {
	if s.store == nil {
		return
	}
	raw, ok, err := s.store.Get(ctx, KeyRates)
	if err != nil {
		log.Printf("Warning: [Rates] could not read persisted rates: %v", err)
		return
	}
	if !ok {
		return
	}
	var rates map[string]float64
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		log.Printf("Warning: [Rates] ignoring malformed persisted rates: %v", err)
		return
	}

	var fetchedAt time.Time
	if ts, ok, err := s.store.Get(ctx, KeyRatesFetchedAt); err == nil && ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			fetchedAt = parsed
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mergeRates(s.rates, rates) > 0 && s.fetchedAt.IsZero() {
		s.fetchedAt = fetchedAt
	}
}
