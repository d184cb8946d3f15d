package fsm

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/atomic"
)

type key struct {
	state *State
	input *Input
}

type engineOptions struct {
	name    string
	logger  Logger
	metrics bool
}

// Option configures a StateEngine.
type Option func(*engineOptions)

// WithName sets the engine name used in logs, metric labels and snapshots.
func WithName(name string) Option {
	return func(o *engineOptions) {
		o.name = name
	}
}

// WithLogger sets the logger receiving engine and FSM events.
func WithLogger(logger Logger) Option {
	return func(o *engineOptions) {
		if logger == nil {
			logger = NopLogger{}
		}

		o.logger = logger
	}
}

// WithMetrics enables or disables prometheus metrics for the engine. Metrics
// are enabled by default.
func WithMetrics(enabled bool) Option {
	return func(o *engineOptions) {
		o.metrics = enabled
	}
}

// StateEngine is the transition table shared by any number of FSM instances.
//
// During configuration, Add, AddGuarded and SetDefault register transitions.
// Misuse (nil states, a second default for one state, mutating a frozen
// engine) is recorded rather than returned so calls can be chained; Done
// freezes the engine and reports everything recorded. Creating an FSM freezes
// the engine as well. A frozen engine is read-only and may be shared between
// goroutines without further locking.
type StateEngine[C any] struct {
	opts   engineOptions
	frozen *atomic.Bool

	// fingerprint is written once, before frozen is set.
	fingerprint uint64

	mu       sync.Mutex
	entries  map[key][]Transition[C]
	keys     []key
	defaults map[*State]Transition[C]
	states   []*State
	inputs   []*Input
	seen     map[any]struct{}
	errs     []error
}

// NewStateEngine creates an empty, mutable engine.
func NewStateEngine[C any](opts ...Option) *StateEngine[C] {
	options := engineOptions{
		logger:  NewDefaultLogger(),
		metrics: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &StateEngine[C]{
		opts:     options,
		frozen:   atomic.NewBool(false),
		entries:  make(map[key][]Transition[C]),
		defaults: make(map[*State]Transition[C]),
		seen:     make(map[any]struct{}),
	}
}

// Name returns the engine name.
func (e *StateEngine[C]) Name() string {
	return e.opts.name
}

// Add registers an unguarded transition from old to next on input in.
// An unguarded transition is always enabled. Registering a second unguarded
// transition for the same state and input replaces the first one in place;
// the replacement is logged as a warning.
func (e *StateEngine[C]) Add(old *State, in *Input, action Action[C], next *State) *StateEngine[C] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.checkMutable("add", old, in, next) {
		return e
	}

	e.track(old, in, next)

	k := key{state: old, input: in}
	candidate := Transition[C]{Action: action, Next: next}
	candidates := e.entries[k]

	for i := range candidates {
		if candidates[i].Guarded() {
			continue
		}

		prev := candidates[i].Next
		candidates[i] = candidate

		e.opts.logger.RegistrationOverwritten(context.Background(), e.opts.name, old, in, prev, next)

		if e.opts.metrics {
			registrationOverwritesTotal.WithLabelValues(sanitizeEngine(e.opts.name)).Inc()
		}

		return e
	}

	e.append(k, candidate)

	return e
}

// AddGuarded registers a guarded transition from old to next on input in.
// Guarded transitions for one state and input are evaluated in the order
// they were registered.
func (e *StateEngine[C]) AddGuarded(
	old *State,
	guard Guard[C],
	in *Input,
	action Action[C],
	next *State,
) *StateEngine[C] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.checkMutable("add guarded", old, in, next) {
		return e
	}

	if guard == nil {
		e.errs = append(e.errs, fmt.Errorf("add guarded %s/%s: %w", old, in, ErrNilGuard))

		return e
	}

	e.track(old, in, next)
	e.append(key{state: old, input: in}, Transition[C]{Guard: guard, Action: action, Next: next})

	return e
}

// Declare makes states known to the engine without registering any
// transition for them, so that they can be found by name and restored from
// snapshots.
func (e *StateEngine[C]) Declare(states ...*State) *StateEngine[C] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frozen.Load() {
		e.errs = append(e.errs, fmt.Errorf("declare: %w", ErrEngineFrozen))

		return e
	}

	for _, s := range states {
		if s == nil {
			e.errs = append(e.errs, fmt.Errorf("declare: %w", ErrNilState))

			continue
		}

		e.track(s, nil, s)
	}

	return e
}

// SetDefault registers the transition taken from old when the presented
// input has no registration for old. A state has at most one default.
func (e *StateEngine[C]) SetDefault(old *State, action Action[C], next *State) *StateEngine[C] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frozen.Load() {
		e.errs = append(e.errs, fmt.Errorf("set default %s: %w", old, ErrEngineFrozen))

		return e
	}

	if old == nil || next == nil {
		e.errs = append(e.errs, fmt.Errorf("set default %s -> %s: %w", old, next, ErrNilState))

		return e
	}

	if _, exists := e.defaults[old]; exists {
		e.errs = append(e.errs, fmt.Errorf("set default %s: %w", old, ErrDuplicateDefault))

		return e
	}

	e.track(old, nil, next)
	e.defaults[old] = Transition[C]{Action: action, Next: next}

	return e
}

// Done freezes the engine and returns every configuration error recorded
// so far, or nil. Calling Done more than once is harmless.
func (e *StateEngine[C]) Done() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.frozen.Load() {
		e.fingerprint = e.tableLocked().Fingerprint()
		e.frozen.Store(true)
	}

	return e.errLocked()
}

// Err returns the configuration errors recorded so far without freezing.
func (e *StateEngine[C]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.errLocked()
}

// Frozen reports whether the engine has been frozen.
func (e *StateEngine[C]) Frozen() bool {
	return e.frozen.Load()
}

// Lookup returns a copy of the ordered candidates registered for the state
// and input. The result is empty when nothing is registered.
func (e *StateEngine[C]) Lookup(state *State, in *Input) []Transition[C] {
	if !e.frozen.Load() {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	return slices.Clone(e.entries[key{state: state, input: in}])
}

// DefaultOf returns the default transition of the state, if one is set.
func (e *StateEngine[C]) DefaultOf(state *State) (Transition[C], bool) {
	if !e.frozen.Load() {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	t, ok := e.defaults[state]

	return t, ok
}

// States returns every state the engine knows about, in the order they
// were first registered.
func (e *StateEngine[C]) States() []*State {
	if !e.frozen.Load() {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	return slices.Clone(e.states)
}

// Inputs returns every input the engine knows about, in the order they
// were first registered.
func (e *StateEngine[C]) Inputs() []*Input {
	if !e.frozen.Load() {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	return slices.Clone(e.inputs)
}

// StateByName returns the first registered state with the given name.
func (e *StateEngine[C]) StateByName(name string) (*State, bool) {
	for _, s := range e.States() {
		if s.Name() == name {
			return s, true
		}
	}

	return nil, false
}

// InputByName returns the first registered input with the given name.
func (e *StateEngine[C]) InputByName(name string) (*Input, bool) {
	for _, in := range e.Inputs() {
		if in.Name() == name {
			return in, true
		}
	}

	return nil, false
}

// candidates returns the registered candidates without copying. Only used
// on frozen engines.
func (e *StateEngine[C]) candidates(state *State, in *Input) []Transition[C] {
	return e.entries[key{state: state, input: in}]
}

func (e *StateEngine[C]) checkMutable(op string, old *State, in *Input, next *State) bool {
	ok := true

	if e.frozen.Load() {
		e.errs = append(e.errs, fmt.Errorf("%s %s/%s: %w", op, old, in, ErrEngineFrozen))

		return false
	}

	if old == nil || next == nil {
		e.errs = append(e.errs, fmt.Errorf("%s %s/%s -> %s: %w", op, old, in, next, ErrNilState))
		ok = false
	}

	if in == nil {
		e.errs = append(e.errs, fmt.Errorf("%s %s/%s: %w", op, old, in, ErrNilInput))
		ok = false
	}

	return ok
}

func (e *StateEngine[C]) append(k key, t Transition[C]) {
	if _, exists := e.entries[k]; !exists {
		e.keys = append(e.keys, k)
	}

	e.entries[k] = append(e.entries[k], t)
}

func (e *StateEngine[C]) track(old *State, in *Input, next *State) {
	for _, s := range []*State{old, next} {
		if _, ok := e.seen[s]; !ok {
			e.seen[s] = struct{}{}
			e.states = append(e.states, s)
		}
	}

	if in == nil {
		return
	}

	if _, ok := e.seen[in]; !ok {
		e.seen[in] = struct{}{}
		e.inputs = append(e.inputs, in)
	}
}

func (e *StateEngine[C]) errLocked() error {
	if len(e.errs) == 0 {
		return nil
	}

	return &ConfigurationError{Engine: e.opts.name, Errs: slices.Clone(e.errs)}
}
