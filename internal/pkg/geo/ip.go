package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

// Provider is an IP geolocation endpoint. URL contains an {ip} placeholder.
type Provider struct {
	Name string
	URL  string
}

var DefaultProviders = []Provider{
	{Name: "ipapi", URL: "https://ipapi.co/{ip}/json/"},
	{Name: "ipwhois", URL: "https://ipwho.is/{ip}"},
	{Name: "ipinfo", URL: "https://ipinfo.io/{ip}/json"},
}

// Field names providers use for the country code, in lookup order.
var countryCodeFields = []string{"country_code", "countrycode", "country"}

type IPLocator struct {
	Providers  []Provider
	HTTPClient *http.Client
}

func NewIPLocator(providers []Provider, timeout time.Duration) *IPLocator {
	if len(providers) == 0 {
		providers = DefaultProviders
	}
	return &IPLocator{
		Providers:  providers,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// NewIPLocatorFromEnv reads GEO_PROVIDERS as a comma separated list of URL
// templates.
func NewIPLocatorFromEnv() *IPLocator {
	var providers []Provider
	for _, u := range env.GetEnvList("GEO_PROVIDERS", nil) {
		name := u
		if parsed, err := url.Parse(strings.ReplaceAll(u, "{ip}", "0.0.0.0")); err == nil && parsed.Host != "" {
			name = parsed.Host
		}
		providers = append(providers, Provider{Name: name, URL: u})
	}
	return NewIPLocator(providers, env.GetEnvDuration("GEO_TIMEOUT", 5*time.Second))
}

// IPStrategy resolves the visitor's public IP through the provider list.
func IPStrategy(l *IPLocator) Strategy {
	return Strategy{
		Name:      SourceIP,
		Cacheable: true,
		Resolve: func(ctx context.Context, sig Signals) (Location, bool) {
			if l == nil || !IsPublicIP(sig.ClientIP) {
				return Location{}, false
			}
			loc, err := l.Locate(ctx, sig.ClientIP)
			if err != nil {
				log.Printf("[Geo] ip lookup found no signal: %v", err)
				return Location{}, false
			}
			return loc, true
		},
	}
}

// IsPublicIP rejects empty, unparsable, loopback, private and link-local
// addresses. Looking those up would locate the server, not the visitor.
func IsPublicIP(raw string) bool {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}

// Locate tries each provider in order and returns the first usable answer.
func (l *IPLocator) Locate(ctx context.Context, ip string) (Location, error) {
	if len(l.Providers) == 0 {
		return Location{}, errors.New("no ip geolocation providers configured")
	}
	var errs []error
	for _, p := range l.Providers {
		loc, err := l.query(ctx, p, ip)
		if err == nil {
			return loc, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return Location{}, errors.Join(errs...)
}

func (l *IPLocator) query(ctx context.Context, p Provider, ip string) (Location, error) {
	target := strings.ReplaceAll(p.URL, "{ip}", url.PathEscape(strings.TrimSpace(ip)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Location{}, fmt.Errorf("status=%d", resp.StatusCode)
	}
	return parseProviderBody(body)
}

// parseProviderBody normalizes the country code providers expose under
// different field names.
func parseProviderBody(body []byte) (Location, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Location{}, fmt.Errorf("malformed response: %w", err)
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			fields[strings.ToLower(k)] = strings.TrimSpace(s)
		}
	}

	code := ""
	for _, f := range countryCodeFields {
		if v := strings.ToUpper(fields[f]); isCountryCode(v) {
			code = v
			break
		}
	}
	if code == "" {
		return Location{}, errors.New("response carries no country code")
	}

	loc, ok := locationForCountry(code)
	if !ok {
		return Location{}, fmt.Errorf("unknown country %s", code)
	}
	if name := fields["country_name"]; name != "" {
		loc.Country = name
	}
	if tz := fields["timezone"]; tz != "" {
		loc.Timezone = tz
	}
	return loc, nil
}
