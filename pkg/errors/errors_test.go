package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewError(t *testing.T) {
	err := NewError(ErrCodeInvalidConfig, "unknown cache strategy")

	if err.Code != ErrCodeInvalidConfig {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidConfig, err.Code)
	}
	if err.Category != CategoryConfiguration {
		t.Errorf("expected category %s, got %s", CategoryConfiguration, err.Category)
	}
	if !err.UserFacing {
		t.Error("config errors should be user facing by default")
	}
	if err.Retryable {
		t.Error("config errors should not be retryable")
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorCategory
	}{
		{ErrCodeInvalidConfig, CategoryConfiguration},
		{ErrCodeConfigLoad, CategoryConfiguration},
		{ErrCodeStoreWrite, CategoryStore},
		{ErrCodeOutOfMemory, CategoryResource},
		{ErrCodeDestroyed, CategoryState},
		{ErrCodeOperationFailed, CategoryOperation},
		{ErrCodePanicRecovered, CategoryInternal},
	}

	for _, tt := range tests {
		if got := GetCategory(tt.code); got != tt.want {
			t.Errorf("GetCategory(%s) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrCodeStoreOpen, "cannot open warm store").
		WithComponent("cache").
		WithOperation("preload")

	msg := err.Error()
	if !strings.Contains(msg, "[cache:preload]") {
		t.Errorf("expected component:operation prefix, got %q", msg)
	}
	if !strings.Contains(msg, "STORE_OPEN") {
		t.Errorf("expected error code in message, got %q", msg)
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewError(ErrCodeStoreWrite, "spill failed").WithCause(cause)

	if !stderrors.Is(err, NewError(ErrCodeStoreWrite, "different message")) {
		t.Error("errors with the same code should match via errors.Is")
	}
	if stderrors.Unwrap(err) != cause {
		t.Error("Unwrap should return the underlying cause")
	}

	var perfErr *PerfError
	if !stderrors.As(err, &perfErr) {
		t.Error("errors.As should extract *PerfError")
	}
}

func TestGetRecommendation(t *testing.T) {
	err := NewError(ErrCodeInvalidConfig, "bad strategy")
	if rec := err.GetRecommendation(); !strings.Contains(rec, "cache strategy") {
		t.Errorf("unexpected recommendation: %q", rec)
	}

	unknown := NewError(ErrCodePanicRecovered, "boom")
	if rec := unknown.GetRecommendation(); rec == "" {
		t.Error("expected a fallback recommendation")
	}
}

func TestUserFacingMessage(t *testing.T) {
	internal := NewError(ErrCodeInternalError, "nil map write")
	if msg := internal.UserFacingMessage(); strings.Contains(msg, "nil map") {
		t.Errorf("internal details leaked to user message: %q", msg)
	}

	config := NewError(ErrCodeInvalidConfig, "whatever")
	if msg := config.UserFacingMessage(); msg != "Invalid configuration" {
		t.Errorf("unexpected user message: %q", msg)
	}
}
