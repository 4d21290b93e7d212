package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
	"github.com/gaesaju/gaesaju/ai/providers"
)

const defaultBaseURL = "https://api.openai.com"

// Config holds the OpenAI client configuration.
type Config struct {
	APIKey string

	// BaseURL overrides the API host, mainly for tests.
	BaseURL string

	// Model to request; defaults to gpt-4o-mini.
	Model string

	// Timeout bounds each completion call when the request carries none.
	Timeout time.Duration
}

// Client calls the OpenAI Chat Completions API and returns the structured
// interpretation payload.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Name implements ai.Client.
func (c *Client) Name() ai.ProviderID { return ai.ProviderOpenAI }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float32       `json:"temperature,omitempty"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements ai.Client.
func (c *Client) Complete(ctx context.Context, req *ai.ProviderRequest) (*ai.ProviderResponse, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, ai.NewError(ai.ErrValidationInvalid, "failed to encode request").
			WithProvider(c.Name()).WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(c.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, ai.NewError(ai.ErrValidationInvalid, "failed to create request").
			WithProvider(c.Name()).WithCause(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, providers.MapTransportError(err, c.Name())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadErrorBody(resp.Body), c.Name())
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, ai.NewError(ai.ErrServerInternal, "failed to decode provider response").
			WithProvider(c.Name()).WithCause(err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, ai.NewError(ai.ErrServerInternal, "provider returned no choices").
			WithProvider(c.Name())
	}

	sections, err := providers.ParseSections(chatResp.Choices[0].Message.Content, c.Name())
	if err != nil {
		return nil, err
	}

	respModel := chatResp.Model
	if respModel == "" {
		respModel = model
	}

	return &ai.ProviderResponse{
		Sections: sections,
		Model:    respModel,
		Usage: ai.ProviderUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}
