/*
errors.go - Error taxonomy for posting, storage and lifecycle

ERROR CATEGORIES:
  1. Validation (rejected before anything is persisted, caller may fix and retry)
     ErrInvalidAccount, ErrNegativeAmount, ErrUnbalancedPosting, ErrEmptyPosting,
     ErrInvalidReference
  2. Lifecycle
     ErrInvalidTransition, ErrAlreadyReverted
  3. Store
     ErrStoreUnavailable, ErrEntryNotFound

PROPAGATION:
  Validation errors never reach the store. Store errors surface unchanged
  to the Controller, which does not advance document state on failure.
  The only error swallowed anywhere is ErrAlreadyReverted during
  cancellation, which is logged and skipped so that a re-run completes.

USAGE:
  if errors.Is(err, ledger.ErrUnbalancedPosting) {
      var ub *ledger.UnbalancedError
      errors.As(err, &ub)
      fmt.Println(ub.Difference)
  }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/warp/ledger-engine/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAccount is returned when a line names an unknown or group account.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrNegativeAmount is returned when a debit or credit amount is negative.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrUnbalancedPosting is returned when total debit != total credit.
	ErrUnbalancedPosting = errors.New("unbalanced posting")

	// ErrEmptyPosting is returned when committing a posting with no lines.
	ErrEmptyPosting = errors.New("empty posting")

	// ErrInvalidReference is returned when a document has no type or name.
	ErrInvalidReference = errors.New("invalid document reference")

	// ErrAlreadyReverted is returned when marking an entry reverted twice.
	ErrAlreadyReverted = errors.New("entry already reverted")

	// ErrEntryNotFound is returned when an entry ID does not exist.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrStoreUnavailable is returned for I/O failures in the entry store.
	// Nothing from the failed operation is visible; safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidTransition is returned for lifecycle moves the state machine forbids.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AccountError names the offending account.
type AccountError struct {
	Account string
	Reason  string
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("invalid account %q: %s", e.Account, e.Reason)
}

func (e *AccountError) Unwrap() error { return ErrInvalidAccount }

// UnbalancedError carries the signed difference debit - credit.
// Limit is set when a round-off was refused because the difference was too large.
type UnbalancedError struct {
	Reference  Reference
	Debit      money.Money
	Credit     money.Money
	Difference money.Money
	Limit      *money.Money
}

func (e *UnbalancedError) Error() string {
	if e.Limit != nil {
		return fmt.Sprintf("unbalanced posting %s: difference %s exceeds round-off limit %s",
			e.Reference, e.Difference, e.Limit)
	}
	return fmt.Sprintf("unbalanced posting %s: debit %s, credit %s, difference %s",
		e.Reference, e.Debit, e.Credit, e.Difference)
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalancedPosting }

// StoreError wraps an underlying I/O failure. It matches both
// ErrStoreUnavailable and the wrapped cause.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// TransitionError describes a refused lifecycle move.
type TransitionError struct {
	Reference Reference
	From      State
	To        State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %s to %s", e.Reference, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the caller can fix the input and retry.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrUnbalancedPosting) ||
		errors.Is(err, ErrEmptyPosting) ||
		errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, money.ErrInvalidScale)
}

// IsConflict returns true if the error comes from the current ledger state
// rather than the input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAlreadyReverted)
}

// IsRetryable returns true if the same call might succeed later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
