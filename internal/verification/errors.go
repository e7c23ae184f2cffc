package verification

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies why a check did not produce a record. Every
// category is treated the same way by callers: the visitor is unverified.
type ErrorCategory string

const (
	// ErrorTransport indicates the request never got a response
	ErrorTransport ErrorCategory = "transport"

	// ErrorTimeout indicates the request exceeded its deadline
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadStatus indicates a non-2xx response
	ErrorBadStatus ErrorCategory = "bad_status"

	// ErrorBadBody indicates the response body was not a JSON object
	ErrorBadBody ErrorCategory = "bad_body"

	// ErrorCircuitOpen indicates the call was skipped because the upstream keeps failing
	ErrorCircuitOpen ErrorCategory = "circuit_open"
)

// CheckError wraps a failed check with its category.
type CheckError struct {
	Category   ErrorCategory
	VisitorID  string
	StatusCode int
	Underlying error
}

func (e *CheckError) Error() string {
	msg := fmt.Sprintf("verification check for %s [%s]", e.VisitorID, e.Category)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *CheckError) Unwrap() error {
	return e.Underlying
}

func newCheckError(category ErrorCategory, visitorID string, underlying error) *CheckError {
	return &CheckError{Category: category, VisitorID: visitorID, Underlying: underlying}
}

// GetCategory extracts the category from err, or ErrorTransport for foreign errors.
func GetCategory(err error) ErrorCategory {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorTransport
}
