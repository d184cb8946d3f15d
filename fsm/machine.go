package fsm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
)

type machineOptions struct {
	id string
}

// MachineOption configures an FSM.
type MachineOption func(*machineOptions)

// WithID sets the identifier reported in logs, traces and snapshots.
func WithID(id string) MachineOption {
	return func(o *machineOptions) {
		o.id = id
	}
}

// FSM is one running automaton. It tracks a current state and drives it
// through a shared, frozen StateEngine. The data value is owned by the caller
// and is how guards and actions carry per-instance context.
//
// An FSM is not safe for concurrent use: callers serialize DoIt per instance.
type FSM[C any] struct {
	id     string
	engine *StateEngine[C]
	state  *State
	data   C
}

// New creates an FSM in the initial state. The engine is frozen; New fails
// if the engine recorded configuration errors.
func New[C any](engine *StateEngine[C], initial *State, data C, opts ...MachineOption) (*FSM[C], error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	if initial == nil {
		return nil, fmt.Errorf("initial state: %w", ErrNilState)
	}

	if err := engine.Done(); err != nil {
		return nil, err
	}

	var options machineOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &FSM[C]{
		id:     options.id,
		engine: engine,
		state:  initial,
		data:   data,
	}, nil
}

// ID returns the identifier of the FSM, or "" if none was set.
func (m *FSM[C]) ID() string {
	return m.id
}

// State returns the current state. It is safe to call from guards and
// actions, where it reports the state the transition starts from.
func (m *FSM[C]) State() *State {
	return m.state
}

// Data returns the caller-owned context value.
func (m *FSM[C]) Data() C {
	return m.data
}

// Engine returns the engine driving the FSM.
func (m *FSM[C]) Engine() *StateEngine[C] {
	return m.engine
}

// DoIt feeds one input to the FSM.
//
// The candidates registered for the current state and input are evaluated
// in registration order. The first enabled candidate wins, otherwise the
// first one whose guard returned Default; unguarded candidates are always
// enabled. If no candidate is selected the state's default transition is
// used. The selected action runs before the state changes; if it fails the
// state is unchanged and an *ActionError is returned. If nothing matches,
// a *NoTransitionError is returned and the state is unchanged.
func (m *FSM[C]) DoIt(ctx context.Context, in *Input) error {
	if in == nil {
		return fmt.Errorf("do it in state %s: %w", m.state, ErrNilInput)
	}

	engine := m.engine
	from := m.state

	ctx, span := startDoItSpan(ctx, engine.opts.name, m.id, from, in)
	defer span.End()

	t, kind, ok := m.selectTransition(ctx, from, in)
	if !ok {
		err := &NoTransitionError{State: from, Input: in}

		engine.opts.logger.TransitionRejected(ctx, engine.opts.name, m.id, from, in)
		engine.recordFailure(from, in, reasonNoTransition)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	setTransitionAttributes(span, t.Next, kind, t.GuardName())

	if t.Action != nil {
		start := time.Now()
		err := t.Action.Do(ctx, m, in)
		engine.observeAction(from, in, time.Since(start))

		if err != nil {
			actionErr := &ActionError{From: from, Input: in, To: t.Next, Err: err}

			engine.opts.logger.ActionFailed(ctx, engine.opts.name, m.id, from, in, t.Next, err)
			engine.recordFailure(from, in, reasonActionError)

			span.RecordError(actionErr)
			span.SetStatus(codes.Error, actionErr.Error())

			return actionErr
		}
	}

	m.state = t.Next

	engine.opts.logger.TransitionTaken(ctx, engine.opts.name, m.id, from, in, t.Next, kind)
	engine.recordTransition(from, in, t.Next, kind)

	return nil
}

// Accepts reports whether DoIt would find a transition for the input in the
// current state. Guards are evaluated; actions are not run.
func (m *FSM[C]) Accepts(ctx context.Context, in *Input) bool {
	if in == nil {
		return false
	}

	_, _, ok := m.selectTransition(ctx, m.state, in)

	return ok
}

func (m *FSM[C]) selectTransition(ctx context.Context, from *State, in *Input) (Transition[C], Kind, bool) {
	candidates := m.engine.candidates(from, in)

	fallback := -1

	for i, candidate := range candidates {
		if !candidate.Guarded() {
			return candidate, KindUnguarded, true
		}

		switch candidate.Guard.Evaluate(ctx, m, in) {
		case Enabled:
			return candidate, KindGuarded, true
		case Default:
			if fallback < 0 {
				fallback = i
			}
		case Disabled:
		}
	}

	if fallback >= 0 {
		return candidates[fallback], KindGuarded, true
	}

	if t, ok := m.engine.defaults[from]; ok {
		return t, KindDefault, true
	}

	return Transition[C]{}, "", false
}

func (e *StateEngine[C]) recordTransition(from *State, in *Input, to *State, kind Kind) {
	if !e.opts.metrics {
		return
	}

	transitionsTotal.WithLabelValues(
		sanitizeEngine(e.opts.name), from.Name(), in.Name(), to.Name(), string(kind),
	).Inc()
}

func (e *StateEngine[C]) recordFailure(state *State, in *Input, reason string) {
	if !e.opts.metrics {
		return
	}

	transitionFailuresTotal.WithLabelValues(sanitizeEngine(e.opts.name), state.Name(), in.Name(), reason).Inc()
}

func (e *StateEngine[C]) observeAction(from *State, in *Input, elapsed time.Duration) {
	if !e.opts.metrics {
		return
	}

	actionDuration.WithLabelValues(sanitizeEngine(e.opts.name), from.Name(), in.Name()).Observe(elapsed.Seconds())
}
