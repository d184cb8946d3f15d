package fsm

// Kind classifies how a transition was selected.
type Kind string

const (
	// KindUnguarded is an unguarded registration for the presented input.
	KindUnguarded Kind = "unguarded"
	// KindGuarded is a guarded registration whose guard selected it.
	KindGuarded Kind = "guarded"
	// KindDefault is the per-state default transition.
	KindDefault Kind = "default"
)

// Transition is one candidate move out of a state. A nil Guard means the
// transition is always enabled; a nil Action is a no-op.
type Transition[C any] struct {
	Guard  Guard[C]
	Action Action[C]
	Next   *State
}

// Guarded reports whether the transition carries a guard.
func (t Transition[C]) Guarded() bool {
	return t.Guard != nil
}

// GuardName returns the diagnostic name of the guard, or "" when unguarded.
func (t Transition[C]) GuardName() string {
	if t.Guard == nil {
		return ""
	}

	return describe(t.Guard, "guard")
}

// ActionName returns the diagnostic name of the action, or "" when it has none.
func (t Transition[C]) ActionName() string {
	if t.Action == nil {
		return ""
	}

	return describe(t.Action, "")
}
