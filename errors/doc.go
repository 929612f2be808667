// Package errors provides a structured error taxonomy for the webarchive
// server. Tool handlers return coded errors so the protocol layer, the
// logger, and the error webhook all see the same classification.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: Temporary failures where retry may succeed (network issues, etc.)
//   - Permanent: Failures where retry will not help (invalid input, not found, etc.)
//   - Resource: Resource exhaustion issues (rate limits, quotas, etc.)
//   - Internal: Unexpected errors indicating bugs or system failures
//
// # Usage
//
// Create a new error:
//
//	err := errors.InvalidInput("target_date must be YYYY-MM-DD")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "querying CDX API", errors.WithURL(url))
//
// Check if an error is retryable:
//
//	if errors.IsRetryable(err) {
//	    // caller may retry
//	}
//
// All errors marshal to JSON so they can be forwarded to the error webhook
// without losing their classification.
package errors
