// Package definition builds guarded state machines from YAML documents.
// Guards and script actions are ECMAScript expressions evaluated against the
// machine's bindings.
package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a declarative description of a guarded state machine.
type Definition struct {
	Name        string             `json:"name"                  yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Initial     string             `json:"initial"               yaml:"initial"`
	Final       []string           `json:"final,omitempty"       yaml:"final,omitempty"`
	States      []string           `json:"states"                yaml:"states"`
	Inputs      []string           `json:"inputs"                yaml:"inputs"`
	Transitions []TransitionConfig `json:"transitions"           yaml:"transitions"`
	Defaults    []DefaultConfig    `json:"defaults,omitempty"    yaml:"defaults,omitempty"`
}

// TransitionConfig describes one registration. Without guard, unless or
// otherwise the transition is unguarded. Guard and unless are expressions;
// unless registers the complement of its expression. Otherwise registers a
// guard that always yields the default result.
type TransitionConfig struct {
	From      string         `json:"from"                yaml:"from"`
	Input     string         `json:"input"               yaml:"input"`
	To        string         `json:"to"                  yaml:"to"`
	Name      string         `json:"name,omitempty"      yaml:"name,omitempty"`
	Guard     string         `json:"guard,omitempty"     yaml:"guard,omitempty"`
	Unless    string         `json:"unless,omitempty"    yaml:"unless,omitempty"`
	Otherwise bool           `json:"otherwise,omitempty" yaml:"otherwise,omitempty"`
	Actions   []ActionConfig `json:"actions,omitempty"   yaml:"actions,omitempty"`
}

// DefaultConfig describes the default transition of a state.
type DefaultConfig struct {
	State   string         `json:"state"             yaml:"state"`
	To      string         `json:"to"                yaml:"to"`
	Actions []ActionConfig `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ActionConfig defines the configuration for an action.
type ActionConfig struct {
	Type       string         `json:"type"                 yaml:"type"`
	Name       string         `json:"name,omitempty"       yaml:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Load reads and validates a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read definition %q: %w", path, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a YAML definition.
func LoadFromBytes(data []byte) (*Definition, error) {
	var def Definition

	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// LoadFromFS reads a definition from a filesystem such as an embed.FS.
func LoadFromFS(fsys fs.FS, path string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadFromBytes(data)
}

// Validate checks the definition for structural errors. Every problem found
// is reported.
func (d *Definition) Validate() error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, ErrNameRequired)
	}

	if len(d.States) == 0 {
		errs = append(errs, ErrStatesRequired)
	}

	states := make(map[string]bool, len(d.States))

	for _, s := range d.States {
		if states[s] {
			errs = append(errs, fmt.Errorf("state %q: %w", s, ErrDuplicateState))
		}

		states[s] = true
	}

	inputs := make(map[string]bool, len(d.Inputs))

	for _, in := range d.Inputs {
		if inputs[in] {
			errs = append(errs, fmt.Errorf("input %q: %w", in, ErrDuplicateInput))
		}

		inputs[in] = true
	}

	switch {
	case d.Initial == "":
		errs = append(errs, ErrInitialRequired)
	case !states[d.Initial]:
		errs = append(errs, fmt.Errorf("initial state %q: %w", d.Initial, ErrUnknownState))
	}

	for _, f := range d.Final {
		if !states[f] {
			errs = append(errs, fmt.Errorf("final state %q: %w", f, ErrUnknownState))
		}
	}

	for i, t := range d.Transitions {
		if !states[t.From] {
			errs = append(errs, fmt.Errorf("transition %d: from %q: %w", i, t.From, ErrUnknownState))
		}

		if !states[t.To] {
			errs = append(errs, fmt.Errorf("transition %d: to %q: %w", i, t.To, ErrUnknownState))
		}

		if !inputs[t.Input] {
			errs = append(errs, fmt.Errorf("transition %d: input %q: %w", i, t.Input, ErrUnknownInput))
		}

		if t.guardKinds() > 1 {
			errs = append(errs, fmt.Errorf("transition %d: %w", i, ErrConflictingGuards))
		}

		errs = append(errs, validateActions(fmt.Sprintf("transition %d", i), t.Actions)...)
	}

	defaults := make(map[string]bool, len(d.Defaults))

	for i, def := range d.Defaults {
		if !states[def.State] {
			errs = append(errs, fmt.Errorf("default %d: state %q: %w", i, def.State, ErrUnknownState))
		}

		if !states[def.To] {
			errs = append(errs, fmt.Errorf("default %d: to %q: %w", i, def.To, ErrUnknownState))
		}

		if defaults[def.State] {
			errs = append(errs, fmt.Errorf("default %d: state %q: %w", i, def.State, ErrDuplicateDefault))
		}

		defaults[def.State] = true

		errs = append(errs, validateActions(fmt.Sprintf("default %d", i), def.Actions)...)
	}

	return errors.Join(errs...)
}

func (t TransitionConfig) guardKinds() int {
	n := 0

	if t.Guard != "" {
		n++
	}

	if t.Unless != "" {
		n++
	}

	if t.Otherwise {
		n++
	}

	return n
}

func validateActions(location string, actions []ActionConfig) []error {
	var errs []error

	for i, a := range actions {
		if a.Type == "" {
			errs = append(errs, fmt.Errorf("%s: action %d: %w", location, i, ErrActionTypeRequired))
		}
	}

	return errs
}
