/*
errors.go - Centralized error types for the settlement workflow

PURPOSE:
  All workflow-level errors in one place. The machine wraps these with
  context; callers branch with errors.Is / the Is* helpers.

ERROR CATEGORIES:
  1. Flow errors - wrong state, concurrent trigger
  2. Privilege errors - caller may not handle exception entries
  3. Staging errors - leftover or foreign staged data

SEE ALSO:
  - machine.go: returns these errors
  - staging.go: staged-set persistence that StaleStagingError reports on
*/
package settle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBusy is returned when a commit is triggered while another
	// commit is still in flight.
	ErrBusy = errors.New("settlement already in progress")

	// ErrWrongState is returned when an operation is invoked from a
	// state it is not defined for.
	ErrWrongState = errors.New("operation not valid in current state")

	// ErrAlreadyClosed is returned when the current month's settlement
	// is already committed on the server.
	ErrAlreadyClosed = errors.New("current month already settled")

	// ErrPrivilege is returned when exception entries exist but the
	// caller's credential may not handle them.
	ErrPrivilege = errors.New("insufficient privilege for exception entries")

	// ErrStaleStaging is returned when staged exception data from an
	// earlier run is found where none is expected.
	ErrStaleStaging = errors.New("stale staged exception data")

	// ErrSessionMismatch is returned when the staged data belongs to a
	// different settlement session than the one operating on it.
	ErrSessionMismatch = errors.New("staged data belongs to another session")

	// ErrNothingStaged is returned by Resume when no staged data exists.
	ErrNothingStaged = errors.New("no staged exception data")

	// ErrIncompleteDisposition is returned when reconciliation is
	// completed while rows are still undecided.
	ErrIncompleteDisposition = errors.New("undecided reconciliation rows remain")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PrivilegeError reports how many exception entries were refused.
type PrivilegeError struct {
	EntryCount int
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("insufficient privilege: %d timelog entries against settled projects", e.EntryCount)
}

func (e *PrivilegeError) Unwrap() error { return ErrPrivilege }

// StaleStagingError reports which session left staged data behind.
type StaleStagingError struct {
	Session    uuid.UUID
	EntryCount int
}

func (e *StaleStagingError) Error() string {
	return fmt.Sprintf("stale staged data: %d entries from session %s", e.EntryCount, e.Session)
}

func (e *StaleStagingError) Unwrap() error { return ErrStaleStaging }

// IncompleteDispositionError reports how many rows are still undecided.
type IncompleteDispositionError struct {
	Undecided int
}

func (e *IncompleteDispositionError) Error() string {
	return fmt.Sprintf("%d reconciliation rows still undecided", e.Undecided)
}

func (e *IncompleteDispositionError) Unwrap() error { return ErrIncompleteDisposition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if re-running the workflow might succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsPrivilege returns true if the failure is a privilege refusal.
func IsPrivilege(err error) bool {
	return errors.Is(err, ErrPrivilege)
}

// IsStaleStaging returns true if leftover staged data blocked the run.
func IsStaleStaging(err error) bool {
	return errors.Is(err, ErrStaleStaging)
}
