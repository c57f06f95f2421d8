package errors

import (
	"fmt"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *HermesError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *HermesError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// HTTPStatus reports a non-2xx backend response.
func HTTPStatus(method, url string, status int) *HermesError {
	code := ErrCodeHTTPStatus
	if status == 404 {
		code = ErrCodeNotFound
	}
	return New(code, fmt.Sprintf("%s %s returned status %d", method, url, status)).
		WithDetail("url", url).
		WithDetail("status", status)
}

// Decode reports a payload that could not be parsed.
func Decode(what string, err error) *HermesError {
	return Wrap(err, ErrCodeDecode, fmt.Sprintf("failed to decode %s", what))
}

// Transport reports a failure to reach or keep talking to the backend.
func Transport(url string, err error) *HermesError {
	return Wrap(err, ErrCodeTransport, fmt.Sprintf("transport failure for %s", url)).
		WithDetail("url", url)
}

// Timeout reports an operation that ran out of time.
func Timeout(op string, after time.Duration) *HermesError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", op, after)).
		WithDetail("operation", op).
		WithDetail("timeout", after.String())
}

// ReconnectExhausted reports that the push connection gave up.
func ReconnectExhausted(url string, attempts int, last error) *HermesError {
	return Wrap(last, ErrCodeReconnectExhausted,
		fmt.Sprintf("gave up on %s after %d reconnect attempts", url, attempts)).
		WithDetail("url", url).
		WithDetail("attempts", attempts)
}

// InvalidInput reports a bad argument from the caller.
func InvalidInput(field, reason string) *HermesError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field)
}
