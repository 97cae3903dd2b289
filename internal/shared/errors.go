package shared

import (
	"fmt"
	"strings"
	"time"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Session errors
	ErrListenerNotFound = fmt.Errorf("listener not found")
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrSessionExpired   = fmt.Errorf("session has expired")
	ErrSessionFull      = fmt.Errorf("session already has a partner")
	ErrOwnSession       = fmt.Errorf("cannot join your own session")
	ErrPartnerMissing   = fmt.Errorf("partner has not joined yet")
	ErrSessionGenerated = fmt.Errorf("session playlist already generated")
	ErrNotScored        = fmt.Errorf("compatibility not calculated yet")
	ErrAccessDenied     = fmt.Errorf("access denied")
	ErrInsufficientData = fmt.Errorf("insufficient data: fetch data first")

	// Upstream (streaming provider) errors
	ErrUpstreamAuth        = fmt.Errorf("upstream authentication expired")
	ErrUpstreamPermission  = fmt.Errorf("upstream permission denied")
	ErrUpstreamRateLimited = fmt.Errorf("upstream rate limited")
	ErrUpstreamTransient   = fmt.Errorf("upstream request failed")
)

// PermissionError is returned when the provider rejects a request for lack of granted scopes.
type PermissionError struct {
	Missing []string
	Message string
}

func (e *PermissionError) Error() string {
	msg := ErrUpstreamPermission.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Missing) > 0 {
		msg += " (missing scopes: " + strings.Join(e.Missing, ", ") + ")"
	}
	return msg
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrUpstreamPermission
}

// RateLimitError carries the provider's retry-after hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrUpstreamRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrUpstreamRateLimited
}

// UpstreamError is a non-classified provider failure.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", ErrUpstreamTransient, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%v: status %d: %s", ErrUpstreamTransient, e.Status, e.Message)
	default:
		return fmt.Sprintf("%v: status %d", ErrUpstreamTransient, e.Status)
	}
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamTransient
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
