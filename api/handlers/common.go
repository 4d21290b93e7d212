package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gaesaju/gaesaju/ai"
)

// Response is the uniform API envelope.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"requestId,omitempty"`
}

// ErrorInfo is the serialized error payload.
type ErrorInfo struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 envelope around data.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError maps err onto the HTTP status for its error code and writes
// the error envelope. Non-service errors become a generic 500.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var svcErr *ai.Error
	if !errors.As(err, &svcErr) {
		svcErr = ai.NewError(ai.ErrUnknown, "internal error").WithCause(err)
	}

	status := StatusForCode(svcErr.Code)

	if logger != nil {
		logger.Error("API error",
			zap.String("code", string(svcErr.Code)),
			zap.String("message", svcErr.Message),
			zap.Int("status", status),
			zap.String("provider", string(svcErr.Provider)),
			zap.Error(svcErr.Cause),
		)
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      string(svcErr.Code),
			Message:   svcErr.Message,
			Details:   svcErr.Details,
			Retryable: svcErr.Code.Retryable(),
		},
		Timestamp: time.Now(),
	})
}

// WriteErrorMessage writes a plain error envelope without going through an
// ai.Error.
func WriteErrorMessage(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

// StatusForCode maps service error codes onto client-facing HTTP statuses.
// Upstream provider failures surface as 502 so callers can distinguish
// them from faults in this service.
func StatusForCode(code ai.ErrorCode) int {
	switch code {
	case ai.ErrValidationInvalid, ai.ErrValidationContentFilt:
		return http.StatusBadRequest
	case ai.ErrRateLimitExceeded, ai.ErrAuthQuotaExceeded:
		return http.StatusTooManyRequests
	case ai.ErrTimeout, ai.ErrNetworkConnection,
		ai.ErrServerInternal, ai.ErrServerUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSONBody strictly decodes the request body into dst, writing the
// 400 response itself on failure.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) error {
	if r.Body == nil {
		err := ai.NewError(ai.ErrValidationInvalid, "request body is empty")
		WriteError(w, err, logger)
		return err
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		apiErr := ai.NewError(ai.ErrValidationInvalid, "invalid JSON body").WithCause(err)
		WriteError(w, apiErr, logger)
		return apiErr
	}

	return nil
}

// ResponseWriter wraps http.ResponseWriter to capture the status code for
// logging and metrics middleware.
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter wraps w with a 200 default.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
