package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-feed-service/internal/config"
)

func llmTestClient(baseURL, endpoint string) *LLMClient {
	// httptest servers bind to 127.0.0.1, which runs keyless
	return NewLLMClient(&config.Config{
		LLMBaseURL:     baseURL,
		LLMEndpoint:    endpoint,
		LLMModel:       "test-model",
		LLMAPIKeyEnv:   "LLM_TEST_KEY_UNSET",
		LLMTimeout:     5,
		LLMTemperature: 0.7,
		LLMMaxTokens:   100,
	})
}

func TestGenerateHTMLChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-model", payload.Model)
		require.Len(t, payload.Messages, 2)
		assert.Equal(t, "system", payload.Messages[0].Role)

		w.Write([]byte(`{"choices":[{"message":{"content":"<p>copy</p>"}}]}`))
	}))
	defer srv.Close()

	out, err := llmTestClient(srv.URL, "chat").GenerateHTML(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "<p>copy</p>", out)
}

func TestGenerateHTMLCompletions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		var payload struct {
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Contains(t, payload.Prompt, "sys")
		assert.Contains(t, payload.Prompt, "usr")

		w.Write([]byte(`{"choices":[{"text":" plain copy "}]}`))
	}))
	defer srv.Close()

	out, err := llmTestClient(srv.URL, "completions").GenerateHTML(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "plain copy", out)
}

func TestGenerateHTMLServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := llmTestClient(srv.URL, "chat").GenerateHTML(context.Background(), "sys", "usr")
	require.Error(t, err)
	var callErr *ExternalCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusServiceUnavailable, callErr.StatusCode)
}

func TestGenerateHTMLNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := llmTestClient(srv.URL, "chat").GenerateHTML(context.Background(), "sys", "usr")
	require.Error(t, err)
}

func TestGenerateHTMLRequiresKeyForRemote(t *testing.T) {
	client := NewLLMClient(&config.Config{
		LLMBaseURL:   "https://api.openai.com",
		LLMEndpoint:  "chat",
		LLMModel:     "test-model",
		LLMAPIKeyEnv: "LLM_TEST_KEY_UNSET",
		LLMTimeout:   5,
	})
	_, err := client.GenerateHTML(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}
