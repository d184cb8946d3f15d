package fsm

import (
	"context"
	"fmt"
)

// Result is the outcome of a guard evaluation.
type Result int

const (
	// Disabled means the guarded transition must not be taken.
	Disabled Result = iota
	// Enabled means the guarded transition may be taken.
	Enabled
	// Default means the transition is taken only if no other candidate is enabled.
	Default
)

func (r Result) String() string {
	switch r {
	case Disabled:
		return "DISABLED"
	case Enabled:
		return "ENABLED"
	case Default:
		return "DEFAULT"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Complement swaps Enabled and Disabled. Default is returned unchanged.
func (r Result) Complement() Result {
	switch r {
	case Enabled:
		return Disabled
	case Disabled:
		return Enabled
	default:
		return r
	}
}

// Guard arbitrates whether a transition may be taken. Evaluate must not
// change the machine's state, but it may read State() and Data().
type Guard[C any] interface {
	Evaluate(ctx context.Context, m *FSM[C], in *Input) Result
}

// GuardFunc adapts a function to the Guard interface.
type GuardFunc[C any] func(ctx context.Context, m *FSM[C], in *Input) Result

// Evaluate calls f.
func (f GuardFunc[C]) Evaluate(ctx context.Context, m *FSM[C], in *Input) Result {
	return f(ctx, m, in)
}

// BoolGuard adapts a predicate to a guard returning Enabled or Disabled.
func BoolGuard[C any](pred func(ctx context.Context, m *FSM[C], in *Input) bool) Guard[C] {
	return GuardFunc[C](func(ctx context.Context, m *FSM[C], in *Input) Result {
		if pred(ctx, m, in) {
			return Enabled
		}

		return Disabled
	})
}

// Always returns a guard that is always Enabled.
func Always[C any]() Guard[C] {
	return NamedGuard[C]("always", constGuard[C](Enabled))
}

// Never returns a guard that is always Disabled.
func Never[C any]() Guard[C] {
	return NamedGuard[C]("never", constGuard[C](Disabled))
}

// Otherwise returns a guard that always yields Default, making its
// transition the fallback among the candidates for one input.
func Otherwise[C any]() Guard[C] {
	return NamedGuard[C]("otherwise", constGuard[C](Default))
}

type constGuard[C any] Result

func (g constGuard[C]) Evaluate(context.Context, *FSM[C], *Input) Result {
	return Result(g)
}

// Complement returns a guard whose result is the complement of g's.
func Complement[C any](g Guard[C]) Guard[C] {
	return &complementGuard[C]{inner: g}
}

type complementGuard[C any] struct {
	inner Guard[C]
}

func (g *complementGuard[C]) Evaluate(ctx context.Context, m *FSM[C], in *Input) Result {
	return g.inner.Evaluate(ctx, m, in).Complement()
}

func (g *complementGuard[C]) Name() string {
	return "!" + describe(g.inner, "guard")
}

// NamedGuard attaches a diagnostic name to a guard. The name shows up in
// logs, traces and rendered diagrams.
func NamedGuard[C any](name string, g Guard[C]) Guard[C] {
	return &namedGuard[C]{name: name, inner: g}
}

type namedGuard[C any] struct {
	name  string
	inner Guard[C]
}

func (g *namedGuard[C]) Evaluate(ctx context.Context, m *FSM[C], in *Input) Result {
	return g.inner.Evaluate(ctx, m, in)
}

func (g *namedGuard[C]) Name() string {
	return g.name
}

type named interface {
	Name() string
}

// describe returns the diagnostic name of a guard or action, or the
// fallback when it has none.
func describe(v any, fallback string) string {
	if n, ok := v.(named); ok && n.Name() != "" {
		return n.Name()
	}

	return fallback
}
