package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/engagic/pipeline/pkg/providerlimit"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Summarize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		w.Header().Set("anthropic-ratelimit-requests-remaining", "4")
		w.Header().Set("anthropic-ratelimit-requests-reset", "2026-01-01T00:00:00Z")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"a summary"}]}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "test-key")
	result, headers, err := c.Summarize(context.Background(), "test-model", "summarize this")
	require.NoError(t, err)
	require.Equal(t, "a summary", result.Text)
	require.Equal(t, "4", headers.RequestsRemaining)
	require.Equal(t, "2026-01-01T00:00:00Z", headers.RequestsReset)
}

func TestHTTPClient_Summarize_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("retry-after", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "test-key")
	_, headers, err := c.Summarize(context.Background(), "test-model", "summarize this")
	require.Error(t, err)
	require.Equal(t, "30", headers.RetryAfter)

	var rateLimited *providerlimit.ErrRateLimited
	require.ErrorAs(t, err, &rateLimited)
	require.Equal(t, http.StatusTooManyRequests, rateLimited.Status)
	require.True(t, rateLimited.Retryable())
}

func TestHTTPClient_Summarize_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, "test-key")
	_, _, err := c.Summarize(context.Background(), "test-model", "prompt")
	require.Error(t, err)

	var rateLimited *providerlimit.ErrRateLimited
	require.False(t, errors.As(err, &rateLimited))
}
