package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, matched with errors.Is
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyApplied    = errors.New("suggestion already applied")
	ErrExternalService   = errors.New("external service failed")
	ErrCyclicBOM         = errors.New("cyclic bill of materials")
	ErrInvalidTransition = errors.New("invalid run status transition")
)

// ValidationError reports bad caller input or a request the current state forbids
type ValidationError struct {
	Message string
	Err     error
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is lets a validation error match both ErrValidation and its cause
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyAppliedError is returned when a run line was applied before
type AlreadyAppliedError struct {
	LineID string
}

func (e *AlreadyAppliedError) Error() string {
	return fmt.Sprintf("run line %s already applied", e.LineID)
}

func (e *AlreadyAppliedError) Unwrap() error {
	return ErrAlreadyApplied
}

// ExternalServiceError wraps a failure of the purchasing or production collaborator
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

// Is lets an external error match both ErrExternalService and its cause
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// CyclicBOMError carries the item path that closes a cycle
type CyclicBOMError struct {
	Path []ItemID
}

func (e *CyclicBOMError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return fmt.Sprintf("cyclic bill of materials: %s", strings.Join(parts, " -> "))
}

func (e *CyclicBOMError) Unwrap() error {
	return ErrCyclicBOM
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the request clashes with the current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyApplied) || errors.Is(err, ErrInvalidTransition)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrCyclicBOM)
}
