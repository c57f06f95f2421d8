package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Push and pull transport errors
	ErrCodeTransport          ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeReconnectExhausted ErrorCode = "RECONNECT_EXHAUSTED"

	// Backend response errors
	ErrCodeHTTPStatus ErrorCode = "HTTP_STATUS"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeDecode     ErrorCode = "DECODE_FAILURE"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// HermesError represents a structured error with context
type HermesError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *HermesError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HermesError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *HermesError) WithDetail(key string, value interface{}) *HermesError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *HermesError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new HermesError
func New(code ErrorCode, message string) *HermesError {
	return &HermesError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a HermesError
func Wrap(err error, code ErrorCode, message string) *HermesError {
	return &HermesError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// As returns the first HermesError in err's chain.
func As(err error) (*HermesError, bool) {
	for err != nil {
		if he, ok := err.(*HermesError); ok {
			return he, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}

// Is checks if an error is a specific HermesError code
func Is(err error, code ErrorCode) bool {
	he, ok := As(err)
	return ok && he.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if he, ok := As(err); ok {
		return he.Code
	}
	return ""
}
