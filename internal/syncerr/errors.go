// Package syncerr defines the error kinds shared across the sync engine's
// components, so the orchestrator can classify a failure without
// depending on the package that produced it.
package syncerr

import "fmt"

// ConnectionError wraps a network or HTTP transport failure against the
// upstream portal. Eligible for retry.
type ConnectionError struct {
	Op    string
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// NewConnectionError builds a ConnectionError for operation op.
func NewConnectionError(op string, cause error) error {
	return &ConnectionError{Op: op, Cause: cause}
}

// AuthError wraps a portal login rejection, missing profile, or OAuth
// refresh refusal. Retryable unless Invalidated is set (heuristic: HTTP
// 401 on login means the stored credentials themselves are bad).
type AuthError struct {
	Op          string
	Cause       error
	Invalidated bool
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error during %s: %v", e.Op, e.Cause)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// NewAuthError builds an AuthError for operation op.
func NewAuthError(op string, cause error, invalidated bool) error {
	return &AuthError{Op: op, Cause: cause, Invalidated: invalidated}
}

// CryptoError wraps a public-key fetch or RSA encrypt failure. Retryable:
// most failures are transient fetch failures against the portal.
type CryptoError struct {
	Op    string
	Cause error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto error during %s: %v", e.Op, e.Cause)
}

func (e *CryptoError) Unwrap() error { return e.Cause }

// NewCryptoError builds a CryptoError for operation op.
func NewCryptoError(op string, cause error) error {
	return &CryptoError{Op: op, Cause: cause}
}

// Retryable reports whether err should be retried by the orchestrator.
// ConnectionError and CryptoError are always retryable. AuthError is
// retryable unless Invalidated is set. Any other error is not retryable.
func Retryable(err error) bool {
	switch e := err.(type) {
	case *ConnectionError:
		return true
	case *CryptoError:
		return true
	case *AuthError:
		return !e.Invalidated
	default:
		return false
	}
}
