package diag

import "fmt"

// TokenStepError signals that the token step failed and its verdict was
// already printed. The CLI maps it to a non-zero exit without repeating
// the message.
type TokenStepError struct {
	// Status is the HTTP status when the grant was rejected, 0 for
	// transport failures.
	Status int

	// Reason is the underlying transport error, nil when Status is set.
	Reason error
}

// Error returns a short accounting of the failure.
func (e *TokenStepError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("token request failed: %v", e.Reason)
	}
	return fmt.Sprintf("token request was rejected with status %d", e.Status)
}

// Unwrap returns the underlying error.
func (e *TokenStepError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *TokenStepError) Is(target error) bool {
	_, ok := target.(*TokenStepError)
	return ok
}
