package definition

import "errors"

// Predefined error types.
var (
	// ErrNameRequired indicates that a definition name is required.
	ErrNameRequired = errors.New("definition name is required")
	// ErrInitialRequired indicates that an initial state is required.
	ErrInitialRequired = errors.New("initial state is required")
	// ErrStatesRequired indicates that at least one state is required.
	ErrStatesRequired = errors.New("at least one state is required")
	// ErrDuplicateState indicates that a state name is declared twice.
	ErrDuplicateState = errors.New("duplicate state name")
	// ErrDuplicateInput indicates that an input name is declared twice.
	ErrDuplicateInput = errors.New("duplicate input name")
	// ErrUnknownState indicates a reference to an undeclared state.
	ErrUnknownState = errors.New("unknown state")
	// ErrUnknownInput indicates a reference to an undeclared input.
	ErrUnknownInput = errors.New("unknown input")
	// ErrDuplicateDefault indicates a second default for one state.
	ErrDuplicateDefault = errors.New("duplicate default transition")
	// ErrConflictingGuards indicates that guard, unless and otherwise were combined.
	ErrConflictingGuards = errors.New("guard, unless and otherwise are mutually exclusive")

	// ErrActionTypeRequired indicates that an action type is required.
	ErrActionTypeRequired = errors.New("action type is required")
	// ErrUnknownActionType indicates that an unknown action type was encountered.
	ErrUnknownActionType = errors.New("unknown action type")
	// ErrInvalidParameter indicates a missing or malformed action parameter.
	ErrInvalidParameter = errors.New("invalid action parameter")
	// ErrNotANumber indicates that incr found a non-numeric binding.
	ErrNotANumber = errors.New("binding is not a number")

	// ErrInvalidExpression indicates that a guard expression or script does not compile.
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrScriptFailed indicates that a script threw or could not be evaluated.
	ErrScriptFailed = errors.New("script failed")
	// ErrScriptInterrupted indicates that a script was interrupted by its context.
	ErrScriptInterrupted = errors.New("script interrupted")
	// ErrFailed is returned by the fail action and by fail() in scripts.
	ErrFailed = errors.New("transition failed")
)
