package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpportunityScanner/internal/ports"
)

func TestSendWithActions(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/bottoken123/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal("chat-42", r.PostForm.Get("chat_id"))
		assert.Equal("new opportunity", r.PostForm.Get("text"))
		assert.Contains(r.PostForm.Get("reply_markup"), `"callback_data":"approve:abc"`)
		assert.Contains(r.PostForm.Get("reply_markup"), `"text":"Approve"`)

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	notifier := NewNotifier("token123")
	notifier.baseURL = srv.URL

	err := notifier.Send(context.Background(), "chat-42", "new opportunity", []ports.DeliveryAction{
		{Label: "Approve", Value: "approve:abc"},
		{Label: "Reject", Value: "reject:abc"},
	})
	assert.NoError(err)
}

func TestSendNoActionsOmitsKeyboard(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Empty(r.PostForm.Get("reply_markup"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	notifier := NewNotifier("token123")
	notifier.baseURL = srv.URL

	assert.NoError(notifier.Send(context.Background(), "chat-42", "digest", nil))
}

func TestSendServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	notifier := NewNotifier("token123")
	notifier.baseURL = srv.URL

	assert.Error(t, notifier.Send(context.Background(), "chat-42", "alert", nil))
}

func TestSendMisconfigured(t *testing.T) {
	t.Parallel()

	notifier := NewNotifier("")
	assert.Error(t, notifier.Send(context.Background(), "chat-42", "alert", nil))
}
