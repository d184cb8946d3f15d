package definition

import (
	"context"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Machine is a compiled definition: a frozen engine plus the states and
// inputs it was built from, resolvable by name.
type Machine struct {
	Definition *Definition
	Engine     *fsm.StateEngine[*Bindings]
	Initial    *fsm.State

	states map[string]*fsm.State
	inputs map[string]*fsm.Input
}

// Compile builds a frozen engine from the definition. A nil factory
// creates engines named after the definition; a nil registry uses the
// built-in actions.
func (d *Definition) Compile(factory fsm.Factory[*Bindings], registry *ActionRegistry) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if factory == nil {
		factory = fsm.NewFactory[*Bindings](fsm.WithName(d.Name))
	}

	if registry == nil {
		registry = NewActionRegistry()
	}

	machine := &Machine{
		Definition: d,
		states:     make(map[string]*fsm.State, len(d.States)),
		inputs:     make(map[string]*fsm.Input, len(d.Inputs)),
	}

	for _, name := range d.States {
		machine.states[name] = fsm.NewState(name)
	}

	for _, name := range d.Inputs {
		machine.inputs[name] = fsm.NewInput(name)
	}

	machine.Initial = machine.states[d.Initial]

	engine := factory.Create()

	var errs []error

	for i, t := range d.Transitions {
		location := fmt.Sprintf("%s[%d]", d.Name, i)

		guard, err := buildGuard(location, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("transition %d: %w", i, err))

			continue
		}

		action, err := registry.CreateAll(t.Actions)
		if err != nil {
			errs = append(errs, fmt.Errorf("transition %d: %w", i, err))

			continue
		}

		from, in, to := machine.states[t.From], machine.inputs[t.Input], machine.states[t.To]

		if guard == nil {
			engine.Add(from, in, action, to)
		} else {
			engine.AddGuarded(from, guard, in, action, to)
		}
	}

	for i, def := range d.Defaults {
		action, err := registry.CreateAll(def.Actions)
		if err != nil {
			errs = append(errs, fmt.Errorf("default %d: %w", i, err))

			continue
		}

		engine.SetDefault(machine.states[def.State], action, machine.states[def.To])
	}

	// States without transitions must still resolve when restoring.
	for _, name := range d.States {
		engine.Declare(machine.states[name])
	}

	if err := engine.Done(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	machine.Engine = engine

	return machine, nil
}

// State resolves a state by name.
func (m *Machine) State(name string) (*fsm.State, bool) {
	s, ok := m.states[name]

	return s, ok
}

// Input resolves an input by name.
func (m *Machine) Input(name string) (*fsm.Input, bool) {
	in, ok := m.inputs[name]

	return in, ok
}

// New starts an FSM in the initial state. Nil data starts with empty
// bindings.
func (m *Machine) New(data *Bindings, opts ...fsm.MachineOption) (*fsm.FSM[*Bindings], error) {
	if data == nil {
		data = NewBindings()
	}

	return fsm.New(m.Engine, m.Initial, data, opts...)
}

// Restore recreates an FSM from a snapshot taken on this machine.
func (m *Machine) Restore(snap *fsm.Snapshot, opts ...fsm.MachineOption) (*fsm.FSM[*Bindings], error) {
	return fsm.Restore(m.Engine, snap, DecodeBindings, opts...)
}

// Feed resolves the input by name and feeds it to f.
func (m *Machine) Feed(ctx context.Context, f *fsm.FSM[*Bindings], input string) error {
	in, ok := m.inputs[input]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInput, input)
	}

	return f.DoIt(ctx, in)
}

// EncodeBindings is the snapshot encoder for compiled machines.
func EncodeBindings(b *Bindings) ([]byte, error) {
	return b.MarshalJSON()
}

// DecodeBindings is the snapshot decoder for compiled machines.
func DecodeBindings(raw []byte) (*Bindings, error) {
	b := NewBindings()

	if len(raw) == 0 {
		return b, nil
	}

	if err := b.UnmarshalJSON(raw); err != nil {
		return nil, err
	}

	return b, nil
}
