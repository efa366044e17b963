package keywords

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpportunityScanner/internal/config"
)

func TestGetKeywords(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/v1/keywords", r.URL.Path)
		assert.Equal("devrel", r.URL.Query().Get("context"))
		assert.Equal("Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keywords":["golang"," fastapi ","","caching"]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.KeywordConfig{URL: srv.URL, APIKey: "secret"})
	got, err := client.GetKeywords(context.Background(), "devrel")
	require.NoError(t, err)
	assert.Equal([]string{"golang", "fastapi", "caching"}, got)
}

func TestGetKeywordsServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "context unknown", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(config.KeywordConfig{URL: srv.URL})
	_, err := client.GetKeywords(context.Background(), "missing")
	assert.Error(t, err)
}
