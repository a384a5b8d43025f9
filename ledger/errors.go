/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Lifecycle controllers and the HTTP layer branch on these with errors.Is.

ERROR CATEGORIES:
  1. Lookup errors     - ErrNotFound
  2. Workflow errors   - ErrInvalidTransition, ErrConcurrentModification
  3. Money errors      - ErrInsufficientFunds
  4. Caller errors     - ErrInsufficientPermission, ErrValidation
  5. Collaborators     - ErrExternalServiceUnavailable

USAGE:
  if errors.Is(err, ledger.ErrInsufficientFunds) {
      var ife *ledger.InsufficientFundsError
      errors.As(err, &ife)
  }

SEE ALSO:
  - api/handlers.go: Maps these errors to HTTP status codes
  - store/sqlite/sqlite.go: Returns ErrNotFound, ErrDuplicate, ErrConcurrentModification
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a workflow operation is illegal
	// from the record's current status.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInsufficientFunds is returned when a debit would take an account
	// balance (or a card limit) below what is available.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPermission is returned when the actor may not perform the operation.
	ErrInsufficientPermission = errors.New("insufficient permission")

	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrExternalServiceUnavailable is returned by collaborators (receipt
	// extraction, notification dispatch) that failed or timed out.
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrConcurrentModification is returned when a guarded update finds the
	// row no longer in the expected state.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Kind string
	ID   string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot move from %s to %s", e.Kind, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	AccountID AccountID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s: available %s, requested %s, shortfall %s",
		e.AccountID, e.Available.StringFixed(2), e.Requested.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// CreditLimitError is returned when a card charge would exceed the card limit.
type CreditLimitError struct {
	CardID    CardID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("card %s: available limit %s, requested %s",
		e.CardID, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *CreditLimitError) Unwrap() error {
	return ErrInsufficientFunds
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// DependentsError is returned when a delete is refused because other
// records still point at the target.
type DependentsError struct {
	Kind       string
	ID         string
	Dependents string
	Count      int
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("%s %s has %d %s and cannot be deleted", e.Kind, e.ID, e.Count, e.Dependents)
}

func (e *DependentsError) Unwrap() error {
	return ErrValidation
}

// PermissionError names the action the actor was refused.
type PermissionError struct {
	ActorID string
	Action  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %q may not %s", e.ActorID, e.Action)
}

func (e *PermissionError) Unwrap() error {
	return ErrInsufficientPermission
}

// Invalid is a shorthand for a field-level ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrDuplicate)
}

// IsClientError returns true if the error is due to the caller's input or state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientPermission)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
