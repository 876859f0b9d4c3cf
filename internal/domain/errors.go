package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBuildFailed is returned when the Move toolchain cannot compile a package.
	ErrBuildFailed = errors.New("build failed")

	// ErrSubmissionFailed is returned when a batch is rejected by the node or fails on-chain.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrResourceNotFound is returned when an expected object is missing from a result.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidConfig is returned when a required setting is missing or malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPhaseOrder is returned when a phase runs before its precondition phase completed.
	ErrPhaseOrder = errors.New("phase out of order")
)

// BuildError represents a compiler or toolchain failure for one package.
type BuildError struct {
	Package string
	Path    string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s (%s): %v", e.Package, e.Path, e.Err)
}

func (e *BuildError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Err}
}

// SubmissionError represents a batch that did not apply.
// Digest and Status are empty when the node rejected the batch before execution.
type SubmissionError struct {
	Batch  string // Human label, e.g. "publish token" or "orders round 17"
	Digest string
	Status string
	Err    error
}

func (e *SubmissionError) Error() string {
	msg := "submit " + e.Batch
	if e.Digest != "" {
		msg += " [" + e.Digest + "]"
	}
	if e.Status != "" {
		msg += " status=" + e.Status
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmissionFailed}
	}
	return []error{ErrSubmissionFailed, e.Err}
}

// ResourceNotFoundError is returned when no change record satisfies a predicate.
type ResourceNotFoundError struct {
	Context   string // Which step was extracting, e.g. "deepbook"
	Predicate string
}

func (e *ResourceNotFoundError) Error() string {
	if e.Context == "" {
		return "resource not found: " + e.Predicate
	}
	return "resource not found in " + e.Context + ": " + e.Predicate
}

func (e *ResourceNotFoundError) Unwrap() error {
	return ErrResourceNotFound
}

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a transport failure talking to the node or faucet
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "sui_executeTransactionBlock")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}
