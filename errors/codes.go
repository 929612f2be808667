package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: network timeouts, archive temporarily unavailable.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, snapshot not found.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion.
	// Examples: rate limit wait exceeded, upstream 429.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for the failure scenarios this server can hit.
const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Operation timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Archive temporarily unavailable
	ErrCodeNetworkErr  ErrorCode = "NETWORK_ERR" // Network connectivity issue
	ErrCodeUpstream    ErrorCode = "UPSTREAM"    // Archive API returned an error

	// Permanent errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"     // No snapshot / capture exists
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed or invalid input
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"   // Operation not supported
	ErrCodeCanceled     ErrorCode = "CANCELED"      // Operation was canceled
	ErrCodeConfig       ErrorCode = "CONFIG"        // Invalid configuration

	// Resource errors
	ErrCodeRateLimit ErrorCode = "RATE_LIMITED" // Rate limit wait exceeded

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
	ErrCodePanic    ErrorCode = "PANIC"    // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeNetworkErr, ErrCodeUpstream:
		return CategoryTransient

	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeUnsupported,
		ErrCodeCanceled, ErrCodeConfig:
		return CategoryPermanent

	case ErrCodeRateLimit:
		return CategoryResource

	case ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:      "operation timed out",
	ErrCodeUnavailable:  "archive temporarily unavailable",
	ErrCodeNetworkErr:   "network connectivity error",
	ErrCodeUpstream:     "archive API request failed",
	ErrCodeNotFound:     "no archived snapshot found",
	ErrCodeInvalidInput: "invalid input provided",
	ErrCodeUnsupported:  "operation not supported",
	ErrCodeCanceled:     "operation canceled",
	ErrCodeConfig:       "invalid configuration",
	ErrCodeRateLimit:    "rate limit exceeded",
	ErrCodeInternal:     "internal error",
	ErrCodePanic:        "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
