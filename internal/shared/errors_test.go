package shared

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestUpstreamErrors(t *testing.T) {
	t.Run("PermissionError", func(t *testing.T) {
		err := fmt.Errorf("fetch top tracks: %w", &PermissionError{Missing: []string{"user-top-read"}})

		if !errors.Is(err, ErrUpstreamPermission) {
			t.Error("expected errors.Is to match ErrUpstreamPermission")
		}
		if errors.Is(err, ErrUpstreamAuth) {
			t.Error("permission error should not match ErrUpstreamAuth")
		}

		var perr *PermissionError
		if !errors.As(err, &perr) {
			t.Fatal("expected errors.As to find *PermissionError")
		}
		if !strings.Contains(err.Error(), "user-top-read") {
			t.Errorf("expected missing scope in message, got %q", err.Error())
		}
	})

	t.Run("RateLimitError", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", &RateLimitError{RetryAfter: 30 * time.Second})

		if !errors.Is(err, ErrUpstreamRateLimited) {
			t.Error("expected errors.Is to match ErrUpstreamRateLimited")
		}

		var rerr *RateLimitError
		if !errors.As(err, &rerr) || rerr.RetryAfter != 30*time.Second {
			t.Errorf("expected retry after 30s, got %+v", rerr)
		}
	})

	t.Run("UpstreamError", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := &UpstreamError{Err: cause}

		if !errors.Is(err, ErrUpstreamTransient) {
			t.Error("expected errors.Is to match ErrUpstreamTransient")
		}
		if !errors.Is(err, cause) {
			t.Error("expected cause to be unwrapped")
		}

		status := &UpstreamError{Status: 502, Message: "bad gateway"}
		if !strings.Contains(status.Error(), "502") {
			t.Errorf("expected status in message, got %q", status.Error())
		}
	})
}
