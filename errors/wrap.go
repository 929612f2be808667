package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a *Error, its classification is preserved.
// Otherwise a new Internal error wrapping the original is created.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var toolErr *Error
	if errors.As(err, &toolErr) {
		wrapped := &Error{
			code:      toolErr.code,
			category:  toolErr.category,
			message:   message,
			cause:     err,
			metadata:  toolErr.Metadata(),
			retryable: toolErr.retryable,
			tool:      toolErr.tool,
			url:       toolErr.url,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsToolError attempts to extract a ToolError from an error chain.
// Returns nil if none is found.
func AsToolError(err error) ToolError {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.Retryable()
	}
	// Default to not retryable for plain errors
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a *Error.
func Code(err error) ErrorCode {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
func Category(err error) ErrorCategory {
	var toolErr *Error
	if errors.As(err, &toolErr) {
		return toolErr.category
	}
	return ""
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
