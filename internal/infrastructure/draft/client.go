// Package draft generates reply drafts through an OpenAI-compatible chat
// endpoint, falling back to a deterministic template when the service is
// unavailable. Draft generation never blocks the pipeline on a failure.
package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
)

// Generator implements ports.DraftGenerator over a chat-completions API.
type Generator struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.DraftGenerator = (*Generator)(nil)

// NewGenerator builds a generator from configuration.
func NewGenerator(cfg config.DraftConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: logger,
	}
}

// GenerateDraft asks the chat model for a reply draft. Any failure, including
// a misconfigured client, degrades to the template fallback.
func (g *Generator) GenerateDraft(ctx context.Context, opp domain.Opportunity, tone string) string {
	if g == nil || g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return FallbackDraft(opp, tone)
	}

	text, err := g.complete(ctx, opp, tone)
	if err != nil {
		g.logger.Warn("draft generation failed, using template",
			"key", opp.Key.String(),
			"error", err)
		return FallbackDraft(opp, tone)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackDraft(opp, tone)
	}
	return text
}

func (g *Generator) complete(ctx context.Context, opp domain.Opportunity, tone string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(tone)},
			{"role": "user", "content": userPrompt(opp)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal draft payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("draft request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("draft service %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode draft response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("draft response has no choices")
	}
	return payload.Choices[0].Message.Content, nil
}

func systemPrompt(tone string) string {
	tone = strings.TrimSpace(tone)
	if tone == "" {
		tone = "helpful and conversational"
	}
	return fmt.Sprintf(
		"You write short social replies. Tone: %s. Reply with the draft text only, no preamble.", tone)
}

func userPrompt(opp domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft a reply to this post by %s:\n\n%s\n", opp.Author, opp.Text)
	if len(opp.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "\nRelevant topics: %s", strings.Join(opp.MatchedKeywords, ", "))
	}
	return b.String()
}

// FallbackDraft is the deterministic template used when the chat service is
// unreachable. The result always mentions the author and the topic so a
// reviewer has something concrete to edit.
func FallbackDraft(opp domain.Opportunity, tone string) string {
	topic := "this"
	if len(opp.MatchedKeywords) > 0 {
		topic = opp.MatchedKeywords[0]
	}

	author := strings.TrimSpace(opp.Author)
	if author == "" {
		author = "there"
	}

	switch {
	case opp.Flags.IsQuestion || opp.Flags.SeeksAdvice:
		return fmt.Sprintf("Hi %s, great question about %s. Happy to share what has worked for us.", author, topic)
	case opp.Flags.AsksRecommendation:
		return fmt.Sprintf("Hi %s, we have spent a lot of time with %s and can recommend a few options.", author, topic)
	case opp.Flags.SharesExperience:
		return fmt.Sprintf("Hi %s, thanks for sharing your experience with %s. That matches what we have seen.", author, topic)
	default:
		return fmt.Sprintf("Hi %s, interesting point about %s. Would love to hear more about your setup.", author, topic)
	}
}
