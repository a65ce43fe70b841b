package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsImageAndPrefill(t *testing.T) {
	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"\"task\":\"match_suggestion\"}"}]}`))
	}))
	defer srv.Close()

	client := NewClient("secret", WithBaseURL(srv.URL), WithModel("test-model"))
	text, err := client.Complete(context.Background(), Request{
		System:    "sys",
		Prompt:    "identify",
		Image:     []byte{0xff, 0xd8},
		MediaType: "image/png",
		Prefill:   "{",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"task":"match_suggestion"}`, text)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "sys", got.System)
	require.Len(t, got.Messages, 2)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "image", got.Messages[0].Content[0].Type)
	assert.Equal(t, "image/png", got.Messages[0].Content[0].Source.MediaType)
	assert.Equal(t, "/9g=", got.Messages[0].Content[0].Source.Data)
	assert.Equal(t, "identify", got.Messages[0].Content[1].Text)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
