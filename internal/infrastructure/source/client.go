package source

import (
	"bytes"
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
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
)

// PlatformClient talks to the source-platform HTTP API. All calls pass
// through the shared throttle and carry explicit timeouts.
type PlatformClient struct {
	baseURL   string
	token     string
	userAgent string
	http      *retryablehttp.Client
	throttle  *Throttle
}

var _ ports.Publisher = (*PlatformClient)(nil)

// NewPlatformClient builds the client from configuration.
func NewPlatformClient(cfg config.PlatformConfig, throttle *Throttle) *PlatformClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	timeout := cfg.RequestTimeout.Std()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rc.HTTPClient.Timeout = timeout

	return &PlatformClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		http:      rc,
		throttle:  throttle,
	}
}

// Authenticate verifies the session for a detecting context.
func (c *PlatformClient) Authenticate(ctx context.Context, detectingContext string) (bool, error) {
	var resp struct {
		Active bool `json:"active"`
	}
	err := c.get(ctx, "/v1/session?context="+url.QueryEscape(detectingContext), &resp)
	if err != nil {
		return false, err
	}
	return resp.Active, nil
}

// Publish posts text on behalf of a detecting context.
func (c *PlatformClient) Publish(ctx context.Context, detectingContext, text string) (domain.PublishReceipt, error) {
	payload := map[string]string{
		"context": detectingContext,
		"text":    text,
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/posts", payload, &resp); err != nil {
		return domain.PublishReceipt{}, err
	}
	if resp.ID == "" {
		return domain.PublishReceipt{}, fmt.Errorf("publish response missing post id")
	}
	return domain.PublishReceipt{RemoteID: resp.ID}, nil
}

// wirePost is the platform's post representation.
type wirePost struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Replies   int       `json:"replies"`
	Reposts   int       `json:"reposts"`
}

func (p wirePost) toCandidate(detectingContext string) domain.Candidate {
	text := p.Text
	if text == "" && p.HTML != "" {
		text = textFromHTML(p.HTML)
	}
	return domain.Candidate{
		ExternalID:  p.ID,
		Context:     detectingContext,
		Author:      p.Author,
		Text:        text,
		PublishedAt: p.CreatedAt,
		Engagement: domain.EngagementStats{
			Likes:   p.Likes,
			Replies: p.Replies,
			Reposts: p.Reposts,
		},
	}
}

func (c *PlatformClient) fetchPosts(ctx context.Context, path, detectingContext string) ([]domain.Candidate, error) {
	var posts []wirePost
	if err := c.get(ctx, path, &posts); err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(posts))
	for _, post := range posts {
		candidates = append(candidates, post.toCandidate(detectingContext))
	}
	return candidates, nil
}

func (c *PlatformClient) get(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *PlatformClient) post(ctx context.Context, path string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, v)
}

func (c *PlatformClient) do(ctx context.Context, method, path string, body []byte, v any) error {
	if c.throttle != nil {
		if err := c.throttle.Acquire(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("platform error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
