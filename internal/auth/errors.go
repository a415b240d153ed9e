package auth

import (
	"errors"
	"fmt"
)

// MalformedChallengeError is returned by a scheme that cannot use a challenge.
type MalformedChallengeError struct {
	Err    error
	Scheme string
}

// NewMalformedChallengeError creates a MalformedChallengeError with a message.
func NewMalformedChallengeError(scheme, msg string) *MalformedChallengeError {
	return &MalformedChallengeError{Scheme: scheme, Err: errors.New(msg)}
}

// Error implements the error interface.
func (e *MalformedChallengeError) Error() string {
	return fmt.Sprintf("auth: malformed %s challenge: %v", e.Scheme, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MalformedChallengeError) Unwrap() error {
	return e.Err
}

// AuthenticationError is returned when a scheme cannot produce or validate
// an auth response, e.g. missing credentials.
type AuthenticationError struct {
	Err    error
	Scheme string
}

// NewAuthenticationError creates an AuthenticationError with a message.
func NewAuthenticationError(scheme, msg string) *AuthenticationError {
	return &AuthenticationError{Scheme: scheme, Err: errors.New(msg)}
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("auth: %s authentication error: %v", e.Scheme, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// InvariantError is the panic value raised when the exchange state machine
// is driven into an impossible state. It indicates a programming error.
type InvariantError struct {
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "auth: invariant violated: " + e.Message
}
