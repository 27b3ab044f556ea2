package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Chat defaults for the Groq OpenAI-compatible endpoint
const (
	DefaultEndpoint    = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 500
)

// maxErrorBody limits how much of a failed response ends up in an error
const maxErrorBody = 512

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation to a language model and returns the reply
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint
type ChatClient struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// ClientOption configures a ChatClient
type ClientOption func(*ChatClient)

// WithEndpoint sets the API base URL
func WithEndpoint(endpoint string) ClientOption {
	return func(c *ChatClient) { c.endpoint = strings.TrimSuffix(endpoint, "/") }
}

// WithModel sets the model name
func WithModel(model string) ClientOption {
	return func(c *ChatClient) { c.model = model }
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float64) ClientOption {
	return func(c *ChatClient) { c.temperature = temperature }
}

// WithMaxTokens limits the reply length
func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *ChatClient) { c.maxTokens = maxTokens }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ChatClient) { c.httpClient = client }
}

// NewChatClient creates a chat client authenticating with apiKey
func NewChatClient(apiKey string, opts ...ClientOption) *ChatClient {
	c := &ChatClient{
		endpoint:    DefaultEndpoint,
		apiKey:      apiKey,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete posts the messages and returns the content of the first choice.
// It makes exactly one request.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("chat endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
