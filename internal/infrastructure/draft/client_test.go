package draft

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"OpportunityScanner/internal/config"
	"OpportunityScanner/internal/domain"
)

func sampleOpportunity() domain.Opportunity {
	return domain.Opportunity{
		Key:             domain.NaturalKey{ExternalID: "p1", Context: "devrel"},
		Author:          "alice",
		Text:            "Anyone have tips on FastAPI performance tuning?",
		MatchedKeywords: []string{"fastapi"},
		Flags:           domain.ConversationFlags{IsQuestion: true, SeeksAdvice: true},
	}
}

func TestGenerateDraftFromService(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Generated reply text.  "}}]}`))
	}))
	t.Cleanup(srv.Close)

	gen := NewGenerator(config.DraftConfig{Endpoint: srv.URL, Model: "gpt-4o-mini", APIKey: "key"}, nil)
	got := gen.GenerateDraft(context.Background(), sampleOpportunity(), "friendly")
	assert.Equal("Generated reply text.", got)
}

func TestGenerateDraftFallsBackOnServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	gen := NewGenerator(config.DraftConfig{Endpoint: srv.URL, Model: "gpt-4o-mini", APIKey: "key"}, nil)
	got := gen.GenerateDraft(context.Background(), sampleOpportunity(), "friendly")
	assert.Equal(t, FallbackDraft(sampleOpportunity(), "friendly"), got)
	assert.Contains(t, got, "alice")
	assert.Contains(t, got, "fastapi")
}

func TestGenerateDraftFallsBackWhenUnconfigured(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(config.DraftConfig{}, nil)
	got := gen.GenerateDraft(context.Background(), sampleOpportunity(), "")
	assert.NotEmpty(t, got)
}

func TestFallbackDraftVariants(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	opp := sampleOpportunity()
	assert.Contains(FallbackDraft(opp, ""), "great question")

	opp.Flags = domain.ConversationFlags{AsksRecommendation: true}
	assert.Contains(FallbackDraft(opp, ""), "recommend")

	opp.Flags = domain.ConversationFlags{SharesExperience: true}
	assert.Contains(FallbackDraft(opp, ""), "experience")

	opp.Flags = domain.ConversationFlags{}
	opp.MatchedKeywords = nil
	opp.Author = ""
	got := FallbackDraft(opp, "")
	assert.Contains(got, "Hi there")
}
