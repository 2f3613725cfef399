/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch with errors.Is / errors.As; packages wrap with context.

ERROR CATEGORIES:
  1. Transition errors - status not in the target's predecessor set
  2. Validation errors - malformed periods, unknown categories or codes
  3. Policy errors     - writes against a frozen period
  4. Gateway errors    - persistence and notification failures

MISSING INPUT:
  An entry without start or end time is NOT an error. Derived hours are
  absent (see Hours) and nothing here is returned for it.

RECOVERABILITY:
  - ErrInvalidTransition: caller-correctable. Re-read the record and retry
    with a target that is valid for the current status.
  - ErrPersistence: surface as a generic failure; retry the whole call.
  - ErrNotification: never returned to callers of a transition; logged.

SEE ALSO:
  - approval/machine.go: returns InvalidTransitionError
  - store/sqlite/sqlite.go: wraps driver failures in PersistenceError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when the current status is not in the
	// predecessor set of the requested target. The record is unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status code is not part of the
	// category's enumeration.
	ErrInvalidStatus = errors.New("invalid status for category")

	// ErrUnknownCategory is returned for an unrecognised category code.
	ErrUnknownCategory = errors.New("unknown approval category")

	// ErrPeriodLocked is returned when writing raw entries of a period whose
	// attendance has reached final approval.
	ErrPeriodLocked = errors.New("period is frozen after final approval")

	// ErrInvalidPeriod is returned when a period or range is malformed.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrCategoryNotApplicable is returned when a category is used on a
	// subject kind that doesn't own it (daily reports belong to rooms).
	ErrCategoryNotApplicable = errors.New("category does not apply to subject")

	// ErrSubjectNotFound is returned when a referenced subject doesn't exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrPersistence marks failures of the persistence gateway.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotification marks failures of the notification gateway.
	ErrNotification = errors.New("notification failure")

	// ErrConflict is reserved for optimistic-concurrency failures. Writes are
	// last-write-wins today; no store returns it yet.
	ErrConflict = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError describes a rejected transition.
type InvalidTransitionError struct {
	Key      RecordKey
	Category Category
	Current  Status
	Target   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition for %s: %s -> %s",
		e.Category, e.Key, e.Current, e.Target)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// InvalidStatusError describes a status code outside its category's set.
type InvalidStatusError struct {
	Category Category
	Status   Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("status %q is not valid for category %s", e.Status, e.Category)
}

func (e *InvalidStatusError) Unwrap() error {
	return ErrInvalidStatus
}

// PersistenceError wraps a gateway failure with the operation name.
// errors.Is matches both ErrPersistence and the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Persistence wraps err as a PersistenceError; nil stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrCategoryNotApplicable) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrPeriodLocked)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound)
}
