package ninjadb

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotFound", ErrNotFound, "document not found"},
		{"ErrConflict", ErrConflict, "concurrent modification detected"},
		{"ErrInvalidConfig", ErrInvalidConfig, "invalid configuration"},
		{"ErrUnsupportedOperator", ErrUnsupportedOperator, "unsupported filter operator"},
		{"ErrMalformedFilter", ErrMalformedFilter, "malformed filter"},
		{"ErrInvalidID", ErrInvalidID, "invalid document id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("error message = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	baseErr := errors.New("base error")
	ctx := map[string]interface{}{
		"collection": "User",
		"id":         "42",
	}

	err := WithContext(baseErr, ctx)

	var errWithCtx *ErrorWithContext
	if !errors.As(err, &errWithCtx) {
		t.Fatalf("expected ErrorWithContext, got %T", err)
	}
	if !errors.Is(err, baseErr) {
		t.Error("expected error to wrap base error")
	}
	if errWithCtx.Context["collection"] != "User" {
		t.Errorf("context collection = %v, want 'User'", errWithCtx.Context["collection"])
	}
	if WithContext(nil, ctx) != nil {
		t.Error("WithContext(nil) should return nil")
	}
}

func TestErrorWithContext_EmptyContext(t *testing.T) {
	err := WithContext(ErrNotFound, nil)
	if err.Error() != ErrNotFound.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrNotFound.Error())
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", WithContext(ErrNotFound, nil), true},
		{"fmt wrapped", fmt.Errorf("get: %w", ErrNotFound), true},
		{"other error", errors.New("other"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUsageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"operator", WithContext(ErrUnsupportedOperator, map[string]interface{}{"op": "!="}), true},
		{"malformed", ErrMalformedFilter, true},
		{"bad id", fmt.Errorf("file store: %w", ErrInvalidID), true},
		{"not found", ErrNotFound, false},
		{"backend", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUsageError(tt.err); got != tt.want {
				t.Errorf("IsUsageError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(ErrMalformedFilter) {
		t.Error("usage errors are permanent")
	}
	if IsPermanent(ErrConflict) {
		t.Error("ErrConflict is not permanent")
	}
}
