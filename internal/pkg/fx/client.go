// Package fx fetches USD based exchange rate tables.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

const defaultRatesURL = "https://api.exchangerate-api.com/v4/latest/USD"

type Client struct {
	RatesURL   string
	HTTPClient *http.Client
}

type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func NewClient(ratesURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(ratesURL) == "" {
		ratesURL = defaultRatesURL
	}
	return &Client{
		RatesURL:   ratesURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func NewClientFromEnv() *Client {
	return NewClient(
		strings.TrimSpace(env.GetEnv("FX_API_URL", defaultRatesURL)),
		env.GetEnvDuration("FX_API_TIMEOUT", 10*time.Second),
	)
}

// FetchRates returns the provider's rate table, keyed by upper-case code.
func (c *Client) FetchRates(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RatesURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fx rates request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out ratesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("fx rates response: %w", err)
	}
	if base := strings.ToUpper(strings.TrimSpace(out.Base)); base != "" && base != "USD" {
		return nil, fmt.Errorf("fx rates response has base %s, want USD", base)
	}
	if len(out.Rates) == 0 {
		return nil, errors.New("fx rates response contains no rates")
	}

	rates := make(map[string]float64, len(out.Rates))
	for code, r := range out.Rates {
		rates[strings.ToUpper(strings.TrimSpace(code))] = r
	}
	return rates, nil
}
