package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a typefully-mcp error code.
type ErrorCode string

const (
	ErrConfiguration ErrorCode = "CONFIGURATION"  // 500
	ErrValidation    ErrorCode = "VALIDATION"     // 400
	ErrUpstream      ErrorCode = "UPSTREAM"       // upstream status
	ErrTransport     ErrorCode = "TRANSPORT"      // 502
	ErrResponseShape ErrorCode = "RESPONSE_SHAPE" // 502
	ErrInternal      ErrorCode = "INTERNAL"       // 500
)

// maxBodyInMessage caps how much of an upstream body is echoed in Message.
// The full body is kept in Details.
const maxBodyInMessage = 2048

// TypefullyError represents a structured error with code, status, and details.
type TypefullyError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *TypefullyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TypefullyError) Unwrap() error {
	return e.Err
}

// NewConfiguration creates an error for when the server cannot be set up,
// typically because no API key is resolvable.
func NewConfiguration(msg string) *TypefullyError {
	return &TypefullyError{
		Code:    ErrConfiguration,
		Status:  500,
		Message: msg,
	}
}

// NewValidation creates a 400 error for malformed or missing tool arguments.
func NewValidation(msg string) *TypefullyError {
	return &TypefullyError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewUpstream creates an error for a non-2xx response from the Typefully API.
// Status carries the upstream HTTP status.
func NewUpstream(status int, body string) *TypefullyError {
	shown := body
	if len(shown) > maxBodyInMessage {
		shown = shown[:maxBodyInMessage] + "..."
	}
	msg := fmt.Sprintf("typefully api returned status %d", status)
	if shown != "" {
		msg += ": " + shown
	}
	return &TypefullyError{
		Code:    ErrUpstream,
		Status:  status,
		Message: msg,
		Details: map[string]any{"status": status, "body": body},
	}
}

// NewTransport creates a 502 error for connection, DNS, or TLS failures.
func NewTransport(err error) *TypefullyError {
	msg := "request to typefully api failed"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &TypefullyError{
		Code:    ErrTransport,
		Status:  502,
		Message: msg,
		Err:     err,
	}
}

// NewResponseShape creates a 502 error for a successful response whose body
// does not match the expected entity.
func NewResponseShape(msg string) *TypefullyError {
	return &TypefullyError{
		Code:    ErrResponseShape,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is kept in Details for logging; Message stays generic.
func NewInternal(err error) *TypefullyError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &TypefullyError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Err:     err,
	}
}

// As returns the TypefullyError in err's chain, if any.
func As(err error) (*TypefullyError, bool) {
	var tErr *TypefullyError
	if stderrors.As(err, &tErr) {
		return tErr, true
	}
	return nil, false
}

// Is checks if an error is a TypefullyError with the given code.
func Is(err error, code ErrorCode) bool {
	if tErr, ok := As(err); ok {
		return tErr.Code == code
	}
	return false
}
