package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrVersionConflict indicates that an entity was modified concurrently since it was read.
var ErrVersionConflict = errors.New("version conflict")

// ErrInvalidTransition is returned when a project status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrBudgetExceeded is returned when an allocation or verification would push spend past the total budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ErrInvalidProgress is returned for out-of-range or regressing stage progress.
var ErrInvalidProgress = errors.New("invalid progress")

// ErrInvalidState is returned when an operation is not permitted in the entity's current state.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidSplitConfiguration is returned when split percentages do not sum to exactly 100.
var ErrInvalidSplitConfiguration = errors.New("invalid split configuration")

// ErrAlreadyDistributed is returned when an active distribution plan already exists for a project.
var ErrAlreadyDistributed = errors.New("already distributed")

// ErrNoPledges is returned when a project has no completed pledges to distribute over.
var ErrNoPledges = errors.New("no completed pledges")

// ErrUnauthorized is returned when the actor's role does not permit the operation.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvariantViolation is the class of errors raised by the invariant auditor.
var ErrInvariantViolation = errors.New("invariant violation")

// InvariantViolationError describes a failed audit check.
type InvariantViolationError struct {
	Check     string
	ProjectID string
	Details   string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation [%s] on project %s: %s", e.Check, e.ProjectID, e.Details)
}

// Unwrap lets errors.Is match ErrInvariantViolation.
func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}

// NewInvariantViolation builds an InvariantViolationError.
func NewInvariantViolation(check, projectID, format string, args ...any) error {
	return &InvariantViolationError{
		Check:     check,
		ProjectID: projectID,
		Details:   fmt.Sprintf(format, args...),
	}
}
