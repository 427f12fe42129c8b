// Package geo guesses a visitor's currency from ambient signals through an
// ordered cascade of independent, fallible strategies.
package geo

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Source names reported with a resolved location.
const (
	SourceIP       = "ip"
	SourceDevice   = "device"
	SourceTimezone = "timezone"
	SourceLocale   = "locale"
	SourceDefault  = "default"
)

const defaultCurrency = "USD"

// ErrNoCoordinates is returned by a CoordinateSource that has no fix to offer.
var ErrNoCoordinates = errors.New("no device coordinates")

type Location struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Currency    string `json:"currency"`
	Timezone    string `json:"timezone"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CoordinateSource yields device coordinates. It may block while the visitor
// answers a permission prompt.
type CoordinateSource func(ctx context.Context) (Coordinates, error)

// Signals are the ambient inputs a cascade run works from.
type Signals struct {
	ClientIP    string
	Coordinates CoordinateSource
	Timezone    string
	Locale      string
}

func (s Signals) fingerprint() string {
	coords := "0"
	if s.Coordinates != nil {
		coords = "1"
	}
	return strings.Join([]string{s.ClientIP, s.Timezone, s.Locale, coords}, "|")
}

// Strategy produces a location or reports no signal. Resolve must not be
// relied on to handle its own panics; the cascade recovers them.
type Strategy struct {
	Name      string
	Cacheable bool
	Resolve   func(ctx context.Context, sig Signals) (Location, bool)
}

// Result is the outcome of a cascade run.
type Result struct {
	Location  Location `json:"location"`
	Source    string   `json:"source"`
	Cacheable bool     `json:"-"`
}

func (s Strategy) run(ctx context.Context, sig Signals) (loc Location, ok bool) {
	if s.Resolve == nil {
		return Location{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: [Geo] strategy %s panicked: %v", s.Name, r)
			loc, ok = Location{}, false
		}
	}()
	return s.Resolve(ctx, sig)
}

// FirstSuccess runs strategies in order and stops at the first one that
// yields an accepted currency. Later strategies are never started.
func FirstSuccess(ctx context.Context, sig Signals, accept func(currency string) bool, strategies ...Strategy) (Result, bool) {
	for _, s := range strategies {
		loc, ok := s.run(ctx, sig)
		if !ok {
			continue
		}
		loc.Currency = strings.ToUpper(strings.TrimSpace(loc.Currency))
		if loc.Currency == "" {
			continue
		}
		if accept != nil && !accept(loc.Currency) {
			log.Printf("[Geo] strategy %s resolved unsupported currency %s, continuing", s.Name, loc.Currency)
			continue
		}
		if loc.Timezone == "" {
			loc.Timezone = sig.Timezone
		}
		return Result{Location: loc, Source: s.Name, Cacheable: s.Cacheable}, true
	}
	return Result{}, false
}

// Resolver runs the cascade with a terminal USD fallback. Concurrent runs
// for the same key share one execution.
type Resolver struct {
	strategies []Strategy
	accept     func(string) bool
	group      singleflight.Group
}

func NewResolver(accept func(string) bool, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, accept: accept}
}

// NewDefaultResolver wires the standard order: IP, device, timezone, locale.
func NewDefaultResolver(accept func(string) bool, ip *IPLocator, reverse *ReverseGeocoder) *Resolver {
	return NewResolver(accept,
		IPStrategy(ip),
		DeviceStrategy(reverse, DefaultDeviceTimeout),
		TimezoneStrategy(),
		LocaleStrategy(),
	)
}

// Resolve never fails. An empty key disables deduplication. Only callers
// with the same key and the same signals share a run.
func (r *Resolver) Resolve(ctx context.Context, key string, sig Signals) Result {
	if key == "" {
		return r.cascade(ctx, sig)
	}
	v, _, _ := r.group.Do(key+"|"+sig.fingerprint(), func() (interface{}, error) {
		return r.cascade(ctx, sig), nil
	})
	return v.(Result)
}

func (r *Resolver) cascade(ctx context.Context, sig Signals) Result {
	if res, ok := FirstSuccess(ctx, sig, r.accept, r.strategies...); ok {
		return res
	}
	return Result{
		Location: Location{Currency: defaultCurrency, Timezone: sig.Timezone},
		Source:   SourceDefault,
	}
}
