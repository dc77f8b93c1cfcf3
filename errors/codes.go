package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Meeting pipeline errors
const (
	// ErrCodeCaptureUnavailable indicates the audio source is missing or
	// permission to use it was denied.
	ErrCodeCaptureUnavailable ErrorCode = "CAPTURE_UNAVAILABLE"
	// ErrCodeRecognitionFailure indicates a transient speech-recognition
	// failure; buffered audio is retained and retried.
	ErrCodeRecognitionFailure ErrorCode = "RECOGNITION_FAILURE"
	// ErrCodeChannelDisconnected indicates the duplex session channel dropped.
	ErrCodeChannelDisconnected ErrorCode = "CHANNEL_DISCONNECTED"
	// ErrCodeProviderCallFailed indicates a language-model provider call failed.
	ErrCodeProviderCallFailed ErrorCode = "PROVIDER_CALL_FAILED"
	// ErrCodeBudgetExceeded indicates the session cost budget was exhausted.
	ErrCodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidState indicates an operation was attempted in a session
	// state that does not permit it.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable:  true,
	ErrCodeConnectionFailed:    true,
	ErrCodeTimeout:             true,
	ErrCodeRecognitionFailure:  true,
	ErrCodeChannelDisconnected: true,
	ErrCodeProviderCallFailed:  true,
	ErrCodeCaptureUnavailable:  false,
	ErrCodeBudgetExceeded:      false,
	ErrCodeInternal:            false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
