package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResolved matches every *AlreadyResolvedError.
	ErrAlreadyResolved = errors.New("doubt already resolved")
	// ErrBusy is returned when a conversation already has a request in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrInvalidStep is returned for an action not allowed in the conversation's current step.
	ErrInvalidStep = errors.New("action not allowed at this step")
	// ErrAttemptFinished is returned when mutating a finished quiz attempt.
	ErrAttemptFinished = errors.New("quiz attempt already finished")
	// ErrDeadlineExceeded is returned when a timed attempt runs past its deadline.
	ErrDeadlineExceeded = errors.New("contest time is up")
	// ErrForbidden is returned when the caller's role may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrRetryNotAllowed is returned when retrying a contest attempt.
	ErrRetryNotAllowed = errors.New("contest attempts cannot be retried")
	// ErrAlreadyExists matches every *AlreadyExistsError.
	ErrAlreadyExists = errors.New("already exists")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NotFoundError reports a missing doubt, student, quiz or other record.
type NotFoundError struct {
	Kind string
	ID   string
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyExistsError reports a subject, chapter or quiz that clashes with an
// existing one.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

// NewAlreadyExistsError builds an AlreadyExistsError.
func NewAlreadyExistsError(kind, id string) error {
	return &AlreadyExistsError{Kind: kind, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrAlreadyExists) true.
func (e *AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// AlreadyResolvedError reports a second resolve of the same doubt.
type AlreadyResolvedError struct {
	ID string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("doubt %q is already resolved", e.ID)
}

// Is makes errors.Is(err, ErrAlreadyResolved) true.
func (e *AlreadyResolvedError) Is(target error) bool { return target == ErrAlreadyResolved }

// ExternalServiceError wraps a generation-service failure.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// AuthError is a login failure. Reason is a message id in the i18n catalog.
type AuthError struct {
	Reason string
}

const (
	AuthInvalidCredentials = "LoginInvalidCredentials"
	AuthInvalidClass       = "LoginInvalidClass"
)

func (e *AuthError) Error() string {
	switch e.Reason {
	case AuthInvalidClass:
		return "Invalid class. Please check your class and try again."
	default:
		return "Invalid credentials."
	}
}
