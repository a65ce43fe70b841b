package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	defaultModel   = "claude-3-5-sonnet-20241022"
	maxTokens      = 2048
)

// ErrEmptyResponse indicates the model returned no text block.
var ErrEmptyResponse = errors.New("empty response from ai")

// Client sends one multimodal prompt and returns the model's raw text answer.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single-turn prompt, optionally carrying one image.
type Request struct {
	System    string
	Prompt    string
	Image     []byte
	MediaType string
	// Prefill seeds the assistant turn, e.g. "{" to force a JSON answer.
	Prefill string
}

// Option customizes the client.
type Option func(*anthropicClient)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(url string) Option {
	return func(c *anthropicClient) { c.httpClient.SetBaseURL(strings.TrimSuffix(url, "/")) }
}

// WithModel selects the model.
func WithModel(model string) Option {
	return func(c *anthropicClient) {
		if model != "" {
			c.model = model
		}
	}
}

type anthropicClient struct {
	httpClient *resty.Client
	model      string
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string, opts ...Option) Client {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(60 * time.Second)

	c := &anthropicClient{httpClient: client, model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	blocks := make([]contentBlock, 0, 2)
	if len(req.Image) > 0 {
		mediaType := req.MediaType
		if mediaType == "" {
			mediaType = "image/jpeg"
		}
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: req.Prompt})

	messages := []message{{Role: "user", Content: blocks}}
	if req.Prefill != "" {
		messages = append(messages, message{Role: "assistant", Content: []contentBlock{{Type: "text", Text: req.Prefill}}})
	}

	var respBody messageResponse
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(messageRequest{
			Model:     c.model,
			MaxTokens: maxTokens,
			System:    req.System,
			Messages:  messages,
		}).
		SetResult(&respBody).
		SetError(apiErr).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic api error: status=%d type=%s message=%s", resp.StatusCode(), apiErr.Error.Type, apiErr.Error.Message)
	}

	for _, block := range respBody.Content {
		if block.Type == "text" || block.Type == "" {
			return req.Prefill + block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
