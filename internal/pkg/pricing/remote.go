package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/JobFox/internal/pkg/env"
)

const defaultCatalogTimeout = 10 * time.Second

// HTTPSource reads and writes tiers through a remote pricing backend that
// serves GET and POST on the tiers URL.
type HTTPSource struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPSource(url, token string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	return &HTTPSource{
		URL:        strings.TrimSpace(url),
		Token:      strings.TrimSpace(token),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// NewHTTPSourceFromEnv returns nil when PRICING_CATALOG_URL is not set.
func NewHTTPSourceFromEnv() *HTTPSource {
	url := env.GetEnv("PRICING_CATALOG_URL", "")
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return NewHTTPSource(
		url,
		env.GetEnv("PRICING_CATALOG_TOKEN", ""),
		env.GetEnvDuration("PRICING_CATALOG_TIMEOUT", defaultCatalogTimeout),
	)
}

// FetchTiers accepts either a bare JSON array or an object with a tiers
// field.
func (s *HTTPSource) FetchTiers(ctx context.Context) ([]Tier, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	s.authorize(req)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog request failed status=%d body=%s", resp.StatusCode, string(body))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tiers []Tier
		if err := json.Unmarshal(trimmed, &tiers); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		return tiers, nil
	}

	var wrapped struct {
		Tiers []Tier `json:"tiers"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return wrapped.Tiers, nil
}

func (s *HTTPSource) SaveTier(ctx context.Context, tier Tier) error {
	payload, err := json.Marshal(tier)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("save tier failed status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

func (s *HTTPSource) authorize(req *http.Request) {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
}
