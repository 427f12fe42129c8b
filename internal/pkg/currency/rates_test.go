package currency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/JobFox/internal/pkg/cache"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	rates map[string]float64
	err   error
	block chan struct{}
}

func (f *fakeFetcher) FetchRates(ctx context.Context) (map[string]float64, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestRateStoreBootstrapRates(t *testing.T) {
	s := NewRateStore(nil, nil)

	r, ok := s.Rate("usd")
	require.True(t, ok)
	assert.Equal(t, 1.0, r)

	r, ok = s.Rate("NGN")
	require.True(t, ok)
	assert.Equal(t, 1550.0, r)

	_, ok = s.Rate("XYZ")
	assert.False(t, ok)
	assert.True(t, s.IsStale())
}

func TestRefreshIfStaleFetchesOnceWithinWindow(t *testing.T) {
	clock := newClock()
	f := &fakeFetcher{rates: map[string]float64{"EUR": 0.9, "NGN": 1600}}
	s := NewRateStore(f, cache.NewMemory(), WithClock(clock.Now))
	ctx := context.Background()

	assert.True(t, s.RefreshIfStale(ctx))
	clock.Advance(23 * time.Hour)
	assert.False(t, s.RefreshIfStale(ctx))
	assert.Equal(t, 1, f.Calls())

	r, _ := s.Rate("NGN")
	assert.Equal(t, 1600.0, r)

	clock.Advance(2 * time.Hour)
	assert.True(t, s.RefreshIfStale(ctx))
	assert.Equal(t, 2, f.Calls())
}

func TestRefreshFailureKeepsPreviousRates(t *testing.T) {
	clock := newClock()
	f := &fakeFetcher{rates: map[string]float64{"EUR": 0.95}}
	s := NewRateStore(f, cache.NewMemory(), WithClock(clock.Now), WithRetryAfter(0))
	ctx := context.Background()

	require.True(t, s.RefreshIfStale(ctx))
	before, _ := s.Rate("EUR")

	clock.Advance(25 * time.Hour)
	f.err = errors.New("network down")
	assert.False(t, s.RefreshIfStale(ctx))

	after, ok := s.Rate("EUR")
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.True(t, s.IsStale())
}

func TestRefreshFailureBacksOff(t *testing.T) {
	clock := newClock()
	f := &fakeFetcher{err: errors.New("timeout")}
	s := NewRateStore(f, nil, WithClock(clock.Now), WithRetryAfter(time.Hour))
	ctx := context.Background()

	assert.False(t, s.RefreshIfStale(ctx))
	assert.False(t, s.RefreshIfStale(ctx))
	assert.Equal(t, 1, f.Calls())

	clock.Advance(61 * time.Minute)
	assert.False(t, s.RefreshIfStale(ctx))
	assert.Equal(t, 2, f.Calls())

	r, _ := s.Rate("GBP")
	assert.Equal(t, 0.79, r)
}

func TestRefreshIgnoresUnknownAndInvalidRates(t *testing.T) {
	f := &fakeFetcher{rates: map[string]float64{
		"USD": 3,
		"eur": 0.91,
		"XYZ": 42,
		"GBP": 0,
		"JPY": -1,
	}}
	s := NewRateStore(f, nil, WithClock(newClock().Now))

	require.True(t, s.RefreshIfStale(context.Background()))

	usd, _ := s.Rate("USD")
	eur, _ := s.Rate("EUR")
	gbp, _ := s.Rate("GBP")
	jpy, _ := s.Rate("JPY")
	assert.Equal(t, 1.0, usd)
	assert.Equal(t, 0.91, eur)
	assert.Equal(t, 0.79, gbp)
	assert.Equal(t, 150.0, jpy)
	_, ok := s.Rate("XYZ")
	assert.False(t, ok)
	assert.Equal(t, 1.0, s.Snapshot().Rates["USD"])
}

func TestRefreshWithoutSupportedCurrenciesIsFailure(t *testing.T) {
	f := &fakeFetcher{rates: map[string]float64{"XYZ": 1}}
	s := NewRateStore(f, nil, WithClock(newClock().Now))

	assert.False(t, s.RefreshIfStale(context.Background()))
	assert.True(t, s.IsStale())
}

func TestRefreshPersistsAndReloadsSnapshot(t *testing.T) {
	clock := newClock()
	store := cache.NewMemory()
	ctx := context.Background()

	first := NewRateStore(&fakeFetcher{rates: map[string]float64{"KES": 130}}, store, WithClock(clock.Now))
	require.True(t, first.RefreshIfStale(ctx))

	raw, ok, err := store.Get(ctx, KeyRatesFetchedAt)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, "2026-03-01")

	// A new session inside the window reuses the persisted table.
	clock.Advance(time.Hour)
	f := &fakeFetcher{rates: map[string]float64{"KES": 999}}
	second := NewRateStore(f, store, WithClock(clock.Now))
	assert.False(t, second.RefreshIfStale(ctx))
	assert.Equal(t, 0, f.Calls())

	r, _ := second.Rate("KES")
	assert.Equal(t, 130.0, r)
}

func TestMalformedPersistedSnapshotIsIgnored(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyRates, "{not json"))

	f := &fakeFetcher{rates: map[string]float64{"EUR": 0.9}}
	s := NewRateStore(f, store, WithClock(newClock().Now))

	assert.True(t, s.RefreshIfStale(ctx))
	assert.Equal(t, 1, f.Calls())
}

func TestConcurrentRefreshCollapses(t *testing.T) {
	f := &fakeFetcher{rates: map[string]float64{"EUR": 0.9}, block: make(chan struct{})}
	s := NewRateStore(f, nil, WithClock(newClock().Now))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.RefreshIfStale(ctx)
		}()
	}
	require.Eventually(t, func() bool { return f.Calls() >= 1 }, time.Second, time.Millisecond)
	close(f.block)
	wg.Wait()

	assert.Equal(t, 1, f.Calls())
}
