package errors

import "fmt"

// ErrorType classifies failures seen while talking to the Graph API
// and while persisting archive data.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAPI         ErrorType = "api"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeState       ErrorType = "state"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a classified error with the HTTP status code that
// produced it, when one exists. Code is 0 for transport-level failures.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable reports whether another attempt may succeed for this
// error type. Rate limits, server errors and transport failures are
// transient. Malformed response bodies and errors embedded in 2xx
// payloads also count as transient: the feed emits those under load
// and recovers. Everything else is permanent.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError,
		ErrorTypeAPI, ErrorTypeParsing:
		return true
	default:
		return false
	}
}

// ClassifyStatusCode maps an HTTP status code to an ErrorType.
// A code of 0 means the request never produced a response.
func ClassifyStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a
// retryable error.
func IsRetryableStatusCode(statusCode int) bool {
	return IsRetryable(ClassifyStatusCode(statusCode))
}
