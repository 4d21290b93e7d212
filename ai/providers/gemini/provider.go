package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the Gemini client configuration.
type Config struct {
	APIKey string

	// BaseURL overrides the API host, mainly for tests.
	BaseURL string

	// Model to request; defaults to gemini-2.0-flash.
	Model string

	// Timeout bounds each completion call when the request carries none.
	Timeout time.Duration
}

// Client calls the Gemini generateContent API and returns the structured
// interpretation payload.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
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
func (c *Client) Name() ai.ProviderID { return ai.ProviderGemini }

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	Temperature      float32 `json:"temperature,omitempty"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
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

	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.UserPrompt}}},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  req.MaxTokens,
			Temperature:      req.Temperature,
			ResponseMimeType: "application/json",
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, ai.NewError(ai.ErrValidationInvalid, "failed to encode request").
			WithProvider(c.Name()).WithCause(err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, ai.NewError(ai.ErrValidationInvalid, "failed to create request").
			WithProvider(c.Name()).WithCause(err)
	}
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)
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

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, ai.NewError(ai.ErrServerInternal, "failed to decode provider response").
			WithProvider(c.Name()).WithCause(err)
	}

	// A blocked prompt returns 200 with a block reason instead of candidates.
	if genResp.PromptFeedback != nil && genResp.PromptFeedback.BlockReason != "" {
		return nil, ai.NewError(ai.ErrValidationContentFilt,
			fmt.Sprintf("prompt blocked: %s", genResp.PromptFeedback.BlockReason)).
			WithProvider(c.Name())
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, ai.NewError(ai.ErrServerInternal, "provider returned no candidates").
			WithProvider(c.Name())
	}

	sections, err := providers.ParseSections(genResp.Candidates[0].Content.Parts[0].Text, c.Name())
	if err != nil {
		return nil, err
	}

	respModel := genResp.ModelVersion
	if respModel == "" {
		respModel = model
	}

	return &ai.ProviderResponse{
		Sections: sections,
		Model:    respModel,
		Usage: ai.ProviderUsage{
			PromptTokens:     genResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: genResp.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}
