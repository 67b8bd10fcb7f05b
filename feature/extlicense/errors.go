package extlicense

import (
	"errors"
	"fmt"
	"time"
)

// The external API error taxonomy. Each type classifies itself for the
// retry policy via Retryable(); the coordinator uses IsFatal to decide
// whether an error aborts the whole sync, and IsRecordSkip to decide
// whether it only drops a single record.

// NetworkError covers transport failures and 5xx responses.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("external api: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable reports that network failures are worth retrying.
func (e *NetworkError) Retryable() bool { return true }

// TimeoutError covers request deadline expirations.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("external api: %s timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error   { return e.Err }
func (e *TimeoutError) Retryable() bool { return true }

// RateLimitError covers 429 responses. RetryAfter is the server-mandated
// minimum backoff, zero when the server didn't send one.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("external api: rate limited, retry after %s", e.RetryAfter)
	}
	return "external api: rate limited"
}

func (e *RateLimitError) Retryable() bool { return true }

// Backoff returns the mandatory minimum backoff for the retry policy.
func (e *RateLimitError) Backoff() time.Duration { return e.RetryAfter }

// AuthError covers 401/403 responses. It is fatal: the whole sync aborts.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("external api: authentication failed (status %d)", e.Status)
}

func (e *AuthError) Retryable() bool { return false }

// ValidationError marks a single malformed record. The record is skipped;
// the sync continues.
type ValidationError struct {
	AppID  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("external record %q invalid: %s", e.AppID, e.Reason)
}

func (e *ValidationError) Retryable() bool { return false }

// IsFatal reports whether the error must abort the whole sync.
func IsFatal(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRecordSkip reports whether the error only invalidates one record.
func IsRecordSkip(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
