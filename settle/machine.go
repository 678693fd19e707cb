/*
machine.go - Settlement workflow state machine

PURPOSE:
  Drives a month-close run from eligibility probe through commit,
  exception staging and reconciliation. The machine owns the ordering
  rules; the gateway does the talking and the KV does the remembering.

STATES:
  Idle -> EligibilityChecked -> Committing -> CommittedClean
                                           -> UnknownProjectsPending
                                           -> ExceptionsPending -> Reconciling -> Cleared

  UnknownProjectsPending precedes exception handling: unknown project
  names are informational and must be acknowledged before the machine
  looks at exception entries. A privilege refusal leaves the machine in
  Committing with nothing staged. A transport failure aborts to Idle.

CONCURRENCY:
  One commit in flight at a time. A second trigger while a commit runs
  is refused with ErrBusy. The staged set carries the session's uuid so
  a run never clears another run's staged data.

SEE ALSO:
  - staging.go: the durable set written between commit and reconciliation
  - reconcile package: builds the decision view consumed in Reconciling
*/
package settle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/moonlake/settlement-engine/gateway"
)

// =============================================================================
// STATES
// =============================================================================

type State int

const (
	StateIdle State = iota
	StateEligibilityChecked
	StateCommitting
	StateCommittedClean
	StateUnknownProjectsPending
	StateExceptionsPending
	StateReconciling
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEligibilityChecked:
		return "eligibility-checked"
	case StateCommitting:
		return "committing"
	case StateCommittedClean:
		return "committed-clean"
	case StateUnknownProjectsPending:
		return "unknown-projects-pending"
	case StateExceptionsPending:
		return "exceptions-pending"
	case StateReconciling:
		return "reconciling"
	case StateCleared:
		return "cleared"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Readiness is the outcome of the eligibility probe.
type Readiness int

const (
	// ReadinessAlreadyClosed: the current month is settled, nothing to do.
	ReadinessAlreadyClosed Readiness = iota

	// ReadinessCurrentOnly: the prior month is settled, close current only.
	ReadinessCurrentOnly

	// ReadinessWithPriorMonth: the prior month is still open, the commit
	// closes both months.
	ReadinessWithPriorMonth
)

func (r Readiness) String() string {
	switch r {
	case ReadinessAlreadyClosed:
		return "already-closed"
	case ReadinessCurrentOnly:
		return "current-only"
	case ReadinessWithPriorMonth:
		return "with-prior-month"
	}
	return fmt.Sprintf("readiness(%d)", int(r))
}

// =============================================================================
// MACHINE
// =============================================================================

// Gateway is the remote surface the machine drives. *gateway.Client
// satisfies it; tests substitute fakes.
type Gateway interface {
	CheckEligibility(ctx context.Context) (gateway.Eligibility, error)
	CommitSettlement(ctx context.Context, closeBothMonths bool) (gateway.CommitOutcome, error)
}

// Reconciliation is what CompleteReconciliation needs to know about the
// caller's decision view. reconcile.View satisfies it.
type Reconciliation interface {
	Undecided() int
}

// Machine runs one settlement session.
type Machine struct {
	mu      sync.Mutex
	gw      Gateway
	kv      KV
	state   State
	session uuid.UUID

	readiness Readiness
	outcome   gateway.CommitOutcome
	staged    StagedExceptionSet
}

// NewMachine returns an idle machine with a fresh session token.
func NewMachine(gw Gateway, kv KV) *Machine {
	return &Machine{gw: gw, kv: kv, state: StateIdle, session: uuid.New()}
}

// State returns the current workflow state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns this run's session token.
func (m *Machine) Session() uuid.UUID { return m.session }

// UnknownProjects returns the unregistered project names the last
// commit reported.
func (m *Machine) UnknownProjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome.UnknownProjectList()
}

// Done reports whether the run reached a terminal state.
func (m *Machine) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateCommittedClean || m.state == StateCleared
}

// =============================================================================
// WORKFLOW STEPS
// =============================================================================

// Begin probes the server's settlement status. Leftover staged data
// from an earlier run blocks the probe: it must be resumed or discarded
// first. When the current month is already settled Begin reports
// ReadinessAlreadyClosed with ErrAlreadyClosed and stays Idle.
func (m *Machine) Begin(ctx context.Context) (Readiness, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return 0, fmt.Errorf("begin from %s: %w", m.state, ErrWrongState)
	}
	if set, ok, err := LoadStagedSet(ctx, m.kv); err != nil {
		return 0, fmt.Errorf("checking staged data: %w", err)
	} else if ok {
		return 0, &StaleStagingError{Session: set.Session, EntryCount: len(set.Entries)}
	}

	elig, err := m.gw.CheckEligibility(ctx)
	if err != nil {
		return 0, fmt.Errorf("eligibility probe: %w", err)
	}
	switch {
	case elig.ThisMonth:
		m.readiness = ReadinessAlreadyClosed
		return ReadinessAlreadyClosed, ErrAlreadyClosed
	case elig.LastMonth:
		m.readiness = ReadinessCurrentOnly
	default:
		m.readiness = ReadinessWithPriorMonth
	}
	m.state = StateEligibilityChecked
	return m.readiness, nil
}

// Commit closes the month(s) the eligibility probe called for: the
// current month alone when the prior month is already settled, both
// months otherwise. A second Commit while one runs returns ErrBusy.
//
// On success the machine lands in CommittedClean (nothing to report),
// UnknownProjectsPending (unregistered project names need
// acknowledging) or ExceptionsPending (entries staged for
// reconciliation). A privilege refusal returns *PrivilegeError and the
// machine stays in Committing with nothing staged.
func (m *Machine) Commit(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateCommitting {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.state != StateEligibilityChecked {
		m.mu.Unlock()
		return fmt.Errorf("commit from %s: %w", m.state, ErrWrongState)
	}
	closeBoth := m.readiness == ReadinessWithPriorMonth
	m.state = StateCommitting
	m.mu.Unlock()

	outcome, err := m.gw.CommitSettlement(ctx, closeBoth)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateIdle
		return fmt.Errorf("commit: %w", err)
	}
	m.outcome = outcome

	if len(outcome.UnknownProjectList()) > 0 {
		m.state = StateUnknownProjectsPending
		return nil
	}
	return m.settleExceptions(ctx, closeBoth)
}

// AcknowledgeUnknownProjects records that the caller has seen the
// unregistered project names and moves on to exception handling.
func (m *Machine) AcknowledgeUnknownProjects(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateUnknownProjectsPending {
		return fmt.Errorf("acknowledge from %s: %w", m.state, ErrWrongState)
	}
	return m.settleExceptions(ctx, m.readiness == ReadinessWithPriorMonth)
}

// settleExceptions evaluates the commit outcome's exception entries.
// Caller holds the lock.
func (m *Machine) settleExceptions(ctx context.Context, closedBoth bool) error {
	if len(m.outcome.Exceptions) == 0 {
		if m.state == StateUnknownProjectsPending {
			m.state = StateCleared
		} else {
			m.state = StateCommittedClean
		}
		return nil
	}
	if m.outcome.InvalidAccess {
		m.state = StateCommitting
		return &PrivilegeError{EntryCount: len(m.outcome.Exceptions)}
	}

	m.staged = StagedExceptionSet{
		Session:       m.session,
		IncludesPrior: closedBoth,
		Entries:       m.outcome.Exceptions,
	}
	if err := SaveStagedSet(ctx, m.kv, m.staged); err != nil {
		m.state = StateIdle
		return fmt.Errorf("staging exception entries: %w", err)
	}
	m.state = StateExceptionsPending
	return nil
}

// StartReconciliation hands the staged set to the caller and enters
// Reconciling.
func (m *Machine) StartReconciliation() (StagedExceptionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateExceptionsPending {
		return StagedExceptionSet{}, fmt.Errorf("reconcile from %s: %w", m.state, ErrWrongState)
	}
	m.state = StateReconciling
	return m.staged, nil
}

// CompleteReconciliation finishes the run: every row must be decided,
// and the staged set in the store must still belong to this session.
// On success the staged keys are cleared and the machine is Cleared.
func (m *Machine) CompleteReconciliation(ctx context.Context, r Reconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReconciling {
		return fmt.Errorf("complete from %s: %w", m.state, ErrWrongState)
	}
	if n := r.Undecided(); n > 0 {
		return &IncompleteDispositionError{Undecided: n}
	}

	set, ok, err := LoadStagedSet(ctx, m.kv)
	if err != nil {
		return fmt.Errorf("verifying staged data: %w", err)
	}
	if !ok {
		return ErrNothingStaged
	}
	if set.Session != m.session {
		return fmt.Errorf("staged session %s: %w", set.Session, ErrSessionMismatch)
	}
	if err := ClearStagedSet(ctx, m.kv); err != nil {
		return fmt.Errorf("clearing staged data: %w", err)
	}
	m.state = StateCleared
	return nil
}

// =============================================================================
// RECOVERY
// =============================================================================

// Resume adopts a staged set left by an interrupted run and enters
// Reconciling, taking over the set's session token.
func (m *Machine) Resume(ctx context.Context) (StagedExceptionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return StagedExceptionSet{}, fmt.Errorf("resume from %s: %w", m.state, ErrWrongState)
	}
	set, ok, err := LoadStagedSet(ctx, m.kv)
	if err != nil {
		return StagedExceptionSet{}, fmt.Errorf("loading staged data: %w", err)
	}
	if !ok {
		return StagedExceptionSet{}, ErrNothingStaged
	}
	m.session = set.Session
	m.staged = set
	m.state = StateReconciling
	return set, nil
}

// DiscardStaged drops leftover staged data without reconciling it. The
// server's commit is not undone; the entries are simply forgotten.
func (m *Machine) DiscardStaged(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("discard from %s: %w", m.state, ErrWrongState)
	}
	return ClearStagedSet(ctx, m.kv)
}

// Abort returns the machine to Idle from any state that has not staged
// anything. Staged runs must finish or be discarded explicitly.
func (m *Machine) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateEligibilityChecked, StateCommitting, StateUnknownProjectsPending:
		m.state = StateIdle
		return nil
	}
	return fmt.Errorf("abort from %s: %w", m.state, ErrWrongState)
}
