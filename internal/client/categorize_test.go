package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// TestCategorizeError verifies that CategorizeError maps sentinel errors, wrapped
// errors and message-based heuristics to the correct ErrorCategory.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"wrapped timeout", fmt.Errorf("forecast request timeout: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"location not found", fmt.Errorf("%w: %q", ErrLocationNotFound, "atlantis"), ErrorCategoryLocationNotFound},
		{"rate limited", fmt.Errorf("waqi: %w", ErrRateLimited), ErrorCategoryRateLimited},
		{"upstream failure", fmt.Errorf("%w: HTTP 503", ErrUpstreamFailure), ErrorCategoryUpstream},
		{"malformed", fmt.Errorf("forecast: %w: missing current", ErrMalformedResponse), ErrorCategoryParsing},
		{"network in message", errors.New("dial tcp: connection refused"), ErrorCategoryNetwork},
		{"dns", errors.New("lookup api.example: no such host"), ErrorCategoryNetwork},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
