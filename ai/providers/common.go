package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gaesaju/gaesaju/ai"
)

// ErrorBody is the structured error payload parsed from a provider's HTTP
// response. Status and Code are the provider's own machine-readable fields;
// classification relies on them, never on message text.
type ErrorBody struct {
	Message string
	Type    string
	Code    string
}

// MapHTTPError maps an upstream HTTP status plus its structured error body
// onto the error taxonomy. Shared by every provider client.
func MapHTTPError(status int, body ErrorBody, provider ai.ProviderID) *ai.Error {
	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("provider returned HTTP %d", status)
	}

	code := ai.ErrUnknown
	switch status {
	case http.StatusBadRequest:
		code = ai.ErrValidationInvalid
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ai.ErrAuthInvalidAPIKey
	case http.StatusRequestTimeout:
		code = ai.ErrTimeout
	case http.StatusTooManyRequests:
		// OpenAI reports exhausted billing quota as 429 with a distinct
		// machine code; that is a caller problem, not backpressure.
		if body.Code == "insufficient_quota" || body.Type == "insufficient_quota" {
			code = ai.ErrAuthQuotaExceeded
		} else {
			code = ai.ErrRateLimitExceeded
		}
	case http.StatusInternalServerError:
		code = ai.ErrServerInternal
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = ai.ErrServerUnavailable
	default:
		if status >= 500 {
			code = ai.ErrServerInternal
		}
	}

	if body.Code == "content_filter" || body.Type == "content_filter" {
		code = ai.ErrValidationContentFilt
	}

	return ai.NewError(code, msg).WithProvider(provider).WithHTTPStatus(status)
}

// MapTransportError classifies errors from the HTTP round trip itself.
func MapTransportError(err error, provider ai.ProviderID) *ai.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.NewError(ai.ErrTimeout, "provider request timed out").
			WithProvider(provider).WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return ai.NewError(ai.ErrTimeout, "provider request canceled").
			WithProvider(provider).WithCause(err)
	}
	return ai.NewError(ai.ErrNetworkConnection, "provider connection failed").
		WithProvider(provider).WithCause(err)
}

// ReadErrorBody parses the common `{"error": {...}}` envelope, falling back
// to the raw text as the message.
func ReadErrorBody(body io.Reader) ErrorBody {
	data, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return ErrorBody{Message: "failed to read error response"}
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		eb := ErrorBody{
			Message: envelope.Error.Message,
			Type:    envelope.Error.Type,
		}
		if s, ok := envelope.Error.Code.(string); ok {
			eb.Code = s
		}
		if eb.Code == "" {
			eb.Code = envelope.Error.Status
		}
		return eb
	}

	return ErrorBody{Message: string(data)}
}

// ParseSections decodes the strict-JSON interpretation payload every
// provider is instructed to return. A malformed payload is an upstream
// contract violation, classified as SERVER_INTERNAL_ERROR so it stays
// retryable.
func ParseSections(text string, provider ai.ProviderID) (ai.EnhancedInterpretation, error) {
	var sections ai.EnhancedInterpretation
	if err := json.Unmarshal([]byte(text), &sections); err != nil {
		return sections, ai.NewError(ai.ErrServerInternal, "provider returned malformed interpretation JSON").
			WithProvider(provider).WithCause(err)
	}
	return sections, nil
}
