package gmail

import (
	"errors"
	"fmt"
)

// AuthError marks a remote rejection caused by invalid or expired
// credentials. Fatal for the current run; there is no silent re-login.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("gmail auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// TransientError marks a retryable remote condition (rate limit, 5xx).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("gmail transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a malformed request or other non-retryable rejection.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("gmail permanent: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsAuth reports whether err carries an AuthError anywhere in its chain.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransient reports whether err carries a TransientError anywhere in its chain.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
