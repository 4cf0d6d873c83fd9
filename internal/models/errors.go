package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the closed, machine-readable failure taxonomy surfaced to
// clients. Codes are stable wire values; messages are free-form.
type ErrorCode string

const (
	CodeNoAPIConfig         ErrorCode = "NO_API_CONFIG"
	CodeNoTTSConfig         ErrorCode = "NO_TTS_CONFIG"
	CodeInvalidAPIKey       ErrorCode = "INVALID_API_KEY"
	CodeRateLimit           ErrorCode = "RATE_LIMIT"
	CodeServiceUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	CodeAPIError            ErrorCode = "API_ERROR"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeNetworkError        ErrorCode = "NETWORK_ERROR"
	CodeInvalidResponse     ErrorCode = "INVALID_RESPONSE"
	CodeStreamError         ErrorCode = "STREAM_ERROR"
	CodeUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"
	CodeUnknown             ErrorCode = "UNKNOWN_ERROR"
)

// APIError is a terminal, user-visible outcome. Every failure leaving the
// orchestrators is one of these; nothing is silently swallowed.
type APIError struct {
	Code    ErrorCode
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// ErrorCodeOf extracts the taxonomy code from err, falling back to
// UNKNOWN_ERROR for anything untyped.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeUnknown
}
