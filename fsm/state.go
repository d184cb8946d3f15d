// Package fsm is a guarded finite state machine engine.
//
// A StateEngine holds the transition table: for each state and input an
// ordered list of candidate transitions, each with an optional Guard, an
// optional Action and a next State, plus at most one default transition per
// state. Engines are configured once, then frozen and shared by any number
// of FSM instances, each of which tracks its own current state and
// caller-owned data.
//
//	engine := fsm.NewStateEngine[*Order](fsm.WithName("orders"))
//	engine.AddGuarded(open, inStock, pay, reserve, paid).
//		Add(open, cancel, nil, cancelled).
//		SetDefault(paid, nil, open)
//
//	m, err := fsm.New(engine, open, order)
//	err = m.DoIt(ctx, pay)
//
// States and inputs compare by identity, not by name.
package fsm

// State is a named, identity-compared state token. Two states created with
// the same name are still distinct states.
type State struct {
	name string
}

// NewState creates a new state with the given diagnostic name.
func NewState(name string) *State {
	return &State{name: name}
}

// Name returns the diagnostic name of the state.
func (s *State) Name() string {
	if s == nil {
		return "<nil>"
	}

	return s.name
}

func (s *State) String() string {
	return s.Name()
}

// Input is a named, identity-compared input event token.
type Input struct {
	name string
}

// NewInput creates a new input with the given diagnostic name.
func NewInput(name string) *Input {
	return &Input{name: name}
}

// Name returns the diagnostic name of the input.
func (i *Input) Name() string {
	if i == nil {
		return "<nil>"
	}

	return i.name
}

func (i *Input) String() string {
	return i.Name()
}
