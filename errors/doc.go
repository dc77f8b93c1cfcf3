// Package errors provides unified error handling for the meetmind services.
// It implements structured error types with machine-readable codes, HTTP
// status mapping, and retryable detection, covering both generic service
// failures and the meeting-pipeline taxonomy (capture, recognition, channel,
// provider, budget).
package errors
