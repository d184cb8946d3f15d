package fsm

import "context"

// Action is the side effect performed when a transition is taken. It runs
// before the state changes, so m.State() is the pre-transition state.
// Returning an error aborts the transition.
type Action[C any] interface {
	Do(ctx context.Context, m *FSM[C], in *Input) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc[C any] func(ctx context.Context, m *FSM[C], in *Input) error

// Do calls f.
func (f ActionFunc[C]) Do(ctx context.Context, m *FSM[C], in *Input) error {
	return f(ctx, m, in)
}

// NamedAction attaches a diagnostic name to an action.
func NamedAction[C any](name string, a Action[C]) Action[C] {
	return &namedAction[C]{name: name, inner: a}
}

type namedAction[C any] struct {
	name  string
	inner Action[C]
}

func (a *namedAction[C]) Do(ctx context.Context, m *FSM[C], in *Input) error {
	if a.inner == nil {
		return nil
	}

	return a.inner.Do(ctx, m, in)
}

func (a *namedAction[C]) Name() string {
	return a.name
}

// Sequence runs the given actions in order, stopping at the first error.
// Nil entries are skipped.
func Sequence[C any](actions ...Action[C]) Action[C] {
	return ActionFunc[C](func(ctx context.Context, m *FSM[C], in *Input) error {
		for _, a := range actions {
			if a == nil {
				continue
			}

			if err := a.Do(ctx, m, in); err != nil {
				return err
			}
		}

		return nil
	})
}
