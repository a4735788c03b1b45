package flow

import "errors"

// State-machine-level errors. These are rejected synchronously to the caller
// with no durable mutation having occurred.
var (
	// ErrInvalidSelection is returned by Initialize when the flow kind
	// requires a non-empty asset selection and none was supplied.
	ErrInvalidSelection = errors.New("flow requires a non-empty asset selection")

	// ErrPhaseMismatch is returned when the requested phase does not match
	// the flow's current phase, preventing out-of-order execution.
	ErrPhaseMismatch = errors.New("requested phase does not match current phase")

	// ErrNotAwaitingConfirmation is returned by Resume when the current
	// phase is not awaiting confirmation.
	ErrNotAwaitingConfirmation = errors.New("flow is not awaiting confirmation")

	// ErrAwaitingConfirmation is returned by ExecutePhase when automated
	// work already finished and the phase is waiting on a user decision.
	ErrAwaitingConfirmation = errors.New("phase already executed and awaiting confirmation")

	// ErrTerminalPhase is returned by Resume on the last phase of a flow
	// kind; advancing past it is Finalize's job.
	ErrTerminalPhase = errors.New("current phase is terminal, call finalize")

	// ErrNotFinalizable is returned by Finalize unless the terminal phase is
	// awaiting confirmation.
	ErrNotFinalizable = errors.New("flow is not in a finalizable state")

	// ErrFlowNotRunning is returned when an operation requires a running
	// lifecycle and the flow is paused, completed, failed or cancelled.
	ErrFlowNotRunning = errors.New("flow lifecycle is not running")

	// ErrPersistenceConflict is surfaced after a concurrent write was
	// detected twice for the same flow.
	ErrPersistenceConflict = errors.New("concurrent update detected")

	// ErrUnknownFlowKind is returned for a flow kind with no phase ordering.
	ErrUnknownFlowKind = errors.New("unknown flow kind")

	// ErrUnknownPhase is returned when no executor is registered for the
	// requested phase.
	ErrUnknownPhase = errors.New("no executor registered for phase")
)
