package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// CaptureUnavailable creates a new AppError for a missing or denied audio source.
func CaptureUnavailable(source string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCaptureUnavailable, Message: fmt.Sprintf("Audio source %q is unavailable or permission was denied.", source),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
		Details: map[string]any{"source": source}, Cause: cause,
	}
}

// RecognitionFailure creates a new AppError for a transient recognition failure.
func RecognitionFailure(cause error) *AppError {
	return &AppError{
		Code: ErrCodeRecognitionFailure, Message: "Speech recognition failed for this window. Audio is retained and retried.",
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
	}
}

// ChannelDisconnected creates a new AppError for a dropped session channel.
func ChannelDisconnected(channel string) *AppError {
	return &AppError{
		Code: ErrCodeChannelDisconnected, Message: "The session channel is disconnected.",
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"channel": channel},
	}
}

// ProviderCallFailed creates a new AppError for a failed LLM provider call.
func ProviderCallFailed(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeProviderCallFailed, Message: fmt.Sprintf("The %s provider call failed.", stage),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"stage": stage}, Cause: cause,
	}
}

// BudgetExceeded creates a new AppError for an exhausted session budget.
func BudgetExceeded(totalUSD, budgetUSD float64) *AppError {
	return &AppError{
		Code: ErrCodeBudgetExceeded, Message: fmt.Sprintf("Session budget $%.2f exceeded (current: $%.4f).", budgetUSD, totalUSD),
		HTTPStatus: http.StatusPaymentRequired, Retryable: false,
		Details: map[string]any{"total_cost_usd": totalUSD, "budget_usd": budgetUSD},
	}
}

// InvalidState creates a new AppError for an illegal session state transition.
func InvalidState(from, to string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidState, Message: fmt.Sprintf("Cannot transition session from %s to %s.", from, to),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"from": from, "to": to},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// IsAppError reports whether err is or wraps an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// Wrap converts any error into an *AppError. AppErrors (wrapped or not) pass
// through; plain errors become internal errors.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
