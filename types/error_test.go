package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("gemini")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_StringFormat(t *testing.T) {
	t.Parallel()

	err := NewError(ErrNoImage, "no image in model response")
	if got := err.Error(); !strings.Contains(got, string(ErrNoImage)) {
		t.Fatalf("error string %q should contain the code", got)
	}

	wrapped := NewError(ErrEncodeFailed, "read image").WithCause(errors.New("disk gone"))
	if got := wrapped.Error(); !strings.Contains(got, "disk gone") {
		t.Fatalf("error string %q should contain the cause", got)
	}
}

func TestGetErrorCode_PlainError(t *testing.T) {
	t.Parallel()

	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Fatalf("plain error should yield empty code, got %s", code)
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("plain error should not be retryable")
	}
}

func TestGetErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrTimeout, "deadline exceeded").WithRetryable(true)
	wrapped := fmt.Errorf("edit pipeline: %w", inner)

	if code := GetErrorCode(wrapped); code != ErrTimeout {
		t.Fatalf("expected code %s through wrapping, got %s", ErrTimeout, code)
	}
	if !IsRetryable(wrapped) {
		t.Fatalf("retryable flag should survive wrapping")
	}
}
