package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		wantType  string
		retryable bool
	}{
		{400, "*llm.InvalidRequestError", false},
		{401, "*llm.AuthenticationError", false},
		{403, "*llm.AccessDeniedError", false},
		{404, "*llm.NotFoundError", false},
		{413, "*llm.ContextLengthError", false},
		{422, "*llm.InvalidRequestError", false},
		{429, "*llm.RateLimitError", true},
		{500, "*llm.ServerError", true},
		{502, "*llm.ServerError", true},
		{503, "*llm.ServerError", true},
		{504, "*llm.ServerError", true},
		{418, "*llm.ProviderError", true},
	}
	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "openai", "body text")
		if got := typeName(err); got != tt.wantType {
			t.Errorf("status %d: type = %s, want %s", tt.status, got, tt.wantType)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func typeName(err error) string {
	switch err.(type) {
	case *InvalidRequestError:
		return "*llm.InvalidRequestError"
	case *AuthenticationError:
		return "*llm.AuthenticationError"
	case *AccessDeniedError:
		return "*llm.AccessDeniedError"
	case *NotFoundError:
		return "*llm.NotFoundError"
	case *ContextLengthError:
		return "*llm.ContextLengthError"
	case *RateLimitError:
		return "*llm.RateLimitError"
	case *ServerError:
		return "*llm.ServerError"
	case *ProviderError:
		return "*llm.ProviderError"
	default:
		return "unknown"
	}
}

func TestErrorBodyTruncation(t *testing.T) {
	long := strings.Repeat("x", 5000)
	err := ErrorFromStatusCode(500, "gemini", long)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("type = %T", err)
	}
	if len(se.Body) > 2100 {
		t.Errorf("body not truncated: %d bytes", len(se.Body))
	}
	if !strings.HasSuffix(se.Body, "...") {
		t.Error("truncated body should end with ellipsis")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &NetworkError{AdapterError{Message: "request failed", Cause: cause}}
	if !errors.Is(err, cause) {
		t.Error("Unwrap chain broken")
	}
	if got := err.Error(); !strings.Contains(got, "connection refused") {
		t.Errorf("message = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unknown errors are not retryable")
	}
	if !IsRetryable(&NetworkError{AdapterError{Message: "down"}}) {
		t.Error("network errors are retryable")
	}
	if !IsRetryable(&RequestTimeoutError{AdapterError{Message: "slow"}}) {
		t.Error("timeouts are retryable")
	}
	if IsRetryable(&ConfigurationError{AdapterError{Message: "no key"}}) {
		t.Error("configuration errors are not retryable")
	}
}
