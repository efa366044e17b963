// Package keywords implements the remote keyword-store client. The raw
// client is intended to be wrapped by the scoring package's TTL cache so
// scans survive short store outages.
package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/ports"
)

// Client fetches interest keywords for a detecting context over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

var _ ports.KeywordStore = (*Client)(nil)

// NewClient builds a keyword-store client from configuration.
func NewClient(cfg config.KeywordConfig) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = 10 * time.Second

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    rc,
	}
}

// GetKeywords returns the keyword set configured for the context.
func (c *Client) GetKeywords(ctx context.Context, detectingContext string) ([]string, error) {
	endpoint := c.baseURL + "/v1/keywords?context=" + url.QueryEscape(detectingContext)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch keywords: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("keyword store %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}

	out := make([]string, 0, len(payload.Keywords))
	for _, kw := range payload.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out, nil
}
