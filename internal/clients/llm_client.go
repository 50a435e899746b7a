package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"shopify-feed-service/internal/config"
)

// LLMClient calls an OpenAI-compatible API to generate product copy.
// Supports both the chat and the plain completions endpoint so local
// model servers (LM Studio, llama.cpp) work as well as the cloud API.
type LLMClient struct {
	baseURL     string
	endpoint    string // "chat" or "completions"
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionsRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type llmResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// NewLLMClient creates an LLM client from service config. The API key is
// read from the environment variable the config names.
func NewLLMClient(cfg *config.Config) *LLMClient {
	return &LLMClient{
		baseURL:     strings.TrimSuffix(cfg.LLMBaseURL, "/"),
		endpoint:    cfg.LLMEndpoint,
		model:       cfg.LLMModel,
		apiKey:      strings.TrimSpace(os.Getenv(cfg.LLMAPIKeyEnv)),
		temperature: cfg.LLMTemperature,
		maxTokens:   cfg.LLMMaxTokens,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.LLMTimeout) * time.Second,
		},
	}
}

// isLocal reports whether the configured endpoint is a local model
// server, which may run without an API key.
func (c *LLMClient) isLocal() bool {
	return strings.HasPrefix(c.baseURL, "http://127.0.0.1") ||
		strings.HasPrefix(c.baseURL, "http://localhost")
}

// GenerateHTML sends the prompt and returns the raw model output.
func (c *LLMClient) GenerateHTML(ctx context.Context, system, user string) (string, error) {
	if c.apiKey == "" && !c.isLocal() {
		return "", externalErrorf("llm", 0, "no API key configured for %s", c.baseURL)
	}

	var url string
	var payload interface{}
	if c.endpoint == "completions" {
		url = c.baseURL + "/v1/completions"
		payload = completionsRequest{
			Model:       c.model,
			Prompt:      strings.TrimSpace(system + "\n\n" + user),
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}
	} else {
		url = c.baseURL + "/v1/chat/completions"
		payload = chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", externalErrorf("llm", 0, "%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Printf("[LLMClient] %s returned %d: %s", url, resp.StatusCode, string(respBody))
		return "", externalErrorf("llm", resp.StatusCode, "%s", string(respBody))
	}

	var result llmResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", externalErrorf("llm", resp.StatusCode, "malformed response: %v", err)
	}
	if len(result.Choices) == 0 {
		return "", externalErrorf("llm", resp.StatusCode, "response had no choices")
	}
	if c.endpoint == "completions" {
		return strings.TrimSpace(result.Choices[0].Text), nil
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
