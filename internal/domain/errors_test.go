package domain

import (
	"errors"
	"testing"
)

func TestBuildError(t *testing.T) {
	baseErr := errors.New("exit status 1")
	err := &BuildError{Package: "token", Path: "packages/token", Err: baseErr}

	if !errors.Is(err, ErrBuildFailed) {
		t.Error("Expected BuildError to match ErrBuildFailed")
	}
	if !errors.Is(err, baseErr) {
		t.Error("Expected BuildError to wrap the toolchain error")
	}

	expected := "build token (packages/token): exit status 1"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestSubmissionError(t *testing.T) {
	t.Run("rejected before execution", func(t *testing.T) {
		baseErr := errors.New("connection refused")
		err := &SubmissionError{Batch: "publish token", Err: baseErr}

		if !errors.Is(err, ErrSubmissionFailed) || !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap both sentinel and cause")
		}
		if err.Error() != "submit publish token: connection refused" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("failed on chain", func(t *testing.T) {
		err := &SubmissionError{Batch: "orders round 3", Digest: "9xQ", Status: "failure"}

		if !errors.Is(err, ErrSubmissionFailed) {
			t.Error("Expected error to match ErrSubmissionFailed")
		}
		if err.Error() != "submit orders round 3 [9xQ] status=failure" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})
}

func TestResourceNotFoundError(t *testing.T) {
	err := &ResourceNotFoundError{Context: "deepbook", Predicate: `created contains["Registry"]`}

	var target *ResourceNotFoundError
	if !errors.As(err, &target) {
		t.Fatal("errors.As should find ResourceNotFoundError")
	}
	if !errors.Is(err, ErrResourceNotFound) {
		t.Error("Expected error to match ErrResourceNotFound")
	}
	if target.Context != "deepbook" {
		t.Errorf("Context = %q", target.Context)
	}
}

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("dial", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}
		if err.Error() != "dial: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "dial: connection refused")
		}
		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("dial", baseErr)
		fatal := NewFatalNetworkError("read", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}
		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}
		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
		if IsRetriable(NewConfigError("x", "y")) {
			t.Error("ConfigError should never be retriable")
		}
	})
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("network.rpc_url", "missing value")

	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ConfigError should match ErrInvalidConfig")
	}

	expected := "config error [network.rpc_url]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
