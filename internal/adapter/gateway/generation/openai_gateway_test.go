package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/failure"
)

func TestOpenAIGateway_Generate(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"c1","model":"gpt","choices":[{"message":{"role":"assistant","content":"{\"changes\":[]}"},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	resp, err := NewOpenAIGateway("sk-test", srv.URL, "gpt", srv.Client()).Generate(context.Background(), output.GenerationRequest{
		Prompt: "do", System: "be brief",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"changes":[]}`, resp.Output)
	assert.Equal(t, 42, resp.TokensUsed)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAIGateway_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIGateway("k", srv.URL, "", srv.Client()).Generate(context.Background(), output.GenerationRequest{Prompt: "p"})
	assert.True(t, failure.IsKind(err, failure.KindProvider))
	assert.False(t, failure.IsRetryable(err))
}

func TestOpenAIGateway_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIGateway("k", srv.URL, "", srv.Client()).Generate(context.Background(), output.GenerationRequest{Prompt: "p"})
	assert.True(t, failure.IsRetryable(err))
	assert.Contains(t, err.Error(), "slow down")
}
