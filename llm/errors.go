package llm

import "fmt"

// AdapterError is the base error type for all llm errors.
type AdapterError struct {
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// ProviderError represents a non-success response from an LLM vendor. Body
// carries the raw response text so callers can surface what the vendor said.
type ProviderError struct {
	AdapterError
	Provider   string
	StatusCode int
	Body       string
	Retryable  bool
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ AdapterError }
type NetworkError struct{ AdapterError }
type StreamDecodeError struct{ AdapterError }
type ConfigurationError struct{ AdapterError }

// ErrorFromStatusCode maps an HTTP status code and body to the appropriate
// error type. The body is truncated to keep error strings readable.
func ErrorFromStatusCode(statusCode int, provider, body string) error {
	const maxBody = 2048
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}
	pe := ProviderError{
		AdapterError: AdapterError{Message: fmt.Sprintf("%s returned status %d: %s", provider, statusCode, body)},
		Provider:     provider,
		StatusCode:   statusCode,
		Body:         body,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401:
		return &AuthenticationError{ProviderError: pe}
	case 403:
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		return &NotFoundError{ProviderError: pe}
	case 413:
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		// Unknown statuses default to retryable.
		pe.Retryable = true
		return &pe
	}
}

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *AuthenticationError, *AccessDeniedError, *NotFoundError,
		*InvalidRequestError, *ContextLengthError, *ConfigurationError:
		return false
	case *RateLimitError, *ServerError:
		return true
	case *ProviderError:
		return e.Retryable
	case *NetworkError, *StreamDecodeError, *RequestTimeoutError:
		return true
	default:
		return false
	}
}
