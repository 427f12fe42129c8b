package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

const (
	defaultReverseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"

	// DefaultDeviceTimeout bounds the wait for a device fix.
	DefaultDeviceTimeout = 10 * time.Second
)

type ReverseGeocoder struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewReverseGeocoder(baseURL string, timeout time.Duration) *ReverseGeocoder {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultReverseURL
	}
	return &ReverseGeocoder{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: timeout}}
}

func NewReverseGeocoderFromEnv() *ReverseGeocoder {
	return NewReverseGeocoder(
		env.GetEnv("GEO_REVERSE_URL", defaultReverseURL),
		env.GetEnvDuration("GEO_TIMEOUT", 5*time.Second),
	)
}

// Lookup returns the ISO country code and name at c.
func (g *ReverseGeocoder) Lookup(ctx context.Context, c Coordinates) (string, string, error) {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return "", "", fmt.Errorf("coordinates out of range: %v,%v", c.Latitude, c.Longitude)
	}
	u, err := url.Parse(g.BaseURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid reverse geocoding url: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	q.Set("localityLanguage", "en")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("reverse geocoding failed: status=%d", resp.StatusCode)
	}

	var out struct {
		CountryCode string `json:"countryCode"`
		CountryName string `json:"countryName"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", err
	}
	code := strings.ToUpper(strings.TrimSpace(out.CountryCode))
	if !isCountryCode(code) {
		return "", "", errors.New("reverse geocoding returned no country code")
	}
	return code, strings.TrimSpace(out.CountryName), nil
}

// DeviceStrategy waits up to timeout for the visitor's coordinates and
// reverse geocodes them. Denied permission, timeouts and lookup failures are
// all no signal.
func DeviceStrategy(g *ReverseGeocoder, timeout time.Duration) Strategy {
	if timeout <= 0 {
		timeout = DefaultDeviceTimeout
	}
	return Strategy{
		Name:      SourceDevice,
		Cacheable: true,
		Resolve: func(ctx context.Context, sig Signals) (Location, bool) {
			if g == nil || sig.Coordinates == nil {
				return Location{}, false
			}
			coords, err := awaitFix(ctx, sig.Coordinates, timeout)
			if err != nil {
				if !errors.Is(err, ErrNoCoordinates) {
					log.Printf("[Geo] device position unavailable: %v", err)
				}
				return Location{}, false
			}
			code, name, err := g.Lookup(ctx, coords)
			if err != nil {
				log.Printf("[Geo] reverse geocoding found no signal: %v", err)
				return Location{}, false
			}
			loc, ok := locationForCountry(code)
			if !ok {
				return Location{}, false
			}
			if name != "" {
				loc.Country = name
			}
			return loc, true
		},
	}
}

// awaitFix enforces the timeout even when src ignores its context.
func awaitFix(ctx context.Context, src CoordinateSource, timeout time.Duration) (Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type fix struct {
		coords Coordinates
		err    error
	}
	ch := make(chan fix, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fix{err: fmt.Errorf("coordinate source panicked: %v", r)}
			}
		}()
		c, err := src(ctx)
		ch <- fix{coords: c, err: err}
	}()

	select {
	case f := <-ch:
		return f.coords, f.err
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	}
}

// StaticCoordinates returns a source yielding a fixed position.
func StaticCoordinates(c Coordinates) CoordinateSource {
	return func(context.Context) (Coordinates, error) { return c, nil }
}
