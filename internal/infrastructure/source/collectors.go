package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/scanner"
)

// TimelineCollector pulls recent posts from the timeline the context follows.
type TimelineCollector struct {
	client *PlatformClient
}

var _ scanner.Collector = (*TimelineCollector)(nil)

// NewTimelineCollector wires the shared platform client.
func NewTimelineCollector(client *PlatformClient) *TimelineCollector {
	return &TimelineCollector{client: client}
}

// Name identifies the strategy inside the registry.
func (t *TimelineCollector) Name() string {
	return "timeline"
}

// Collect fetches the context's timeline page.
func (t *TimelineCollector) Collect(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	path := "/v1/timeline?context=" + url.QueryEscape(req.Context)
	candidates, err := t.client.fetchPosts(ctx, path, req.Context)
	if err != nil {
		return nil, fmt.Errorf("timeline %s: %w", req.Context, err)
	}
	return candidates, nil
}

// SearchCollector runs a keyword/trend query.
type SearchCollector struct {
	client *PlatformClient
}

var _ scanner.Collector = (*SearchCollector)(nil)

// NewSearchCollector wires the shared platform client.
func NewSearchCollector(client *PlatformClient) *SearchCollector {
	return &SearchCollector{client: client}
}

// Name identifies the strategy inside the registry.
func (s *SearchCollector) Name() string {
	return "search"
}

// Collect runs the configured query for the context.
func (s *SearchCollector) Collect(ctx context.Context, req scanner.Request) ([]domain.Candidate, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("search context %s has no query", req.Context)
	}
	path := "/v1/search?context=" + url.QueryEscape(req.Context) + "&q=" + url.QueryEscape(req.Query)
	candidates, err := s.client.fetchPosts(ctx, path, req.Context)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", req.Context, err)
	}
	return candidates, nil
}

// textFromHTML extracts readable text from an HTML fragment so the scorer
// never sees markup.
func textFromHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
