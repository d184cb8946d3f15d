package fsm

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined error types.
var (
	// ErrConfiguration is matched by every error reported while building a StateEngine.
	ErrConfiguration = errors.New("invalid state engine configuration")
	// ErrNilState indicates that a nil state was passed to the engine.
	ErrNilState = errors.New("state is nil")
	// ErrNilInput indicates that a nil input was passed to the engine.
	ErrNilInput = errors.New("input is nil")
	// ErrNilGuard indicates that AddGuarded was called without a guard.
	ErrNilGuard = errors.New("guard is nil")
	// ErrNilEngine indicates that an FSM was created without an engine.
	ErrNilEngine = errors.New("state engine is nil")
	// ErrDuplicateDefault indicates that a state already has a default transition.
	ErrDuplicateDefault = errors.New("default transition already set")
	// ErrEngineFrozen indicates a mutation of an engine that is already in use.
	ErrEngineFrozen = errors.New("state engine is frozen")

	// ErrNoTransition indicates that neither a registered nor a default
	// transition matched the current state and input.
	ErrNoTransition = errors.New("no transition found")
	// ErrActionFailed indicates that a transition's action returned an error.
	ErrActionFailed = errors.New("action execution failed")

	// ErrUnknownState indicates that a state name could not be resolved.
	ErrUnknownState = errors.New("unknown state")
	// ErrSnapshotMismatch indicates that a snapshot was taken from a different engine.
	ErrSnapshotMismatch = errors.New("snapshot does not match state engine")
)

// ConfigurationError collects the errors reported while building an engine.
type ConfigurationError struct {
	Engine string
	Errs   []error
}

func (e *ConfigurationError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("state engine %s: %v: %s", e.Engine, ErrConfiguration, strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Unwrap() []error {
	return append([]error{ErrConfiguration}, e.Errs...)
}

// NoTransitionError is returned by DoIt when the input is not accepted in
// the current state. The state is left unchanged.
type NoTransitionError struct {
	State *State
	Input *Input
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("state %s, input %s: %v", e.State, e.Input, ErrNoTransition)
}

func (e *NoTransitionError) Unwrap() error {
	return ErrNoTransition
}

// ActionError wraps an error returned by a transition's action. The state
// is left at From.
type ActionError struct {
	From  *State
	Input *Input
	To    *State
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("transition %s -> %s on %s: %v: %v", e.From, e.To, e.Input, ErrActionFailed, e.Err)
}

func (e *ActionError) Unwrap() []error {
	return []error{ErrActionFailed, e.Err}
}
