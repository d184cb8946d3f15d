package validator

import (
	"fmt"
	"slices"

	"github.com/amp-labs/amp-fsm/definition"
)

// FromDefinition builds the rule input for a compiled definition. Declared
// states without registrations are included, so they are reported as
// unreachable or sinks.
func FromDefinition(m *definition.Machine) Machine {
	table := m.Engine.Table()

	for _, s := range m.Definition.States {
		if !slices.Contains(table.States, s) {
			table.States = append(table.States, s)
		}
	}

	return Machine{
		Table:   table,
		Initial: m.Definition.Initial,
		Final:   m.Definition.Final,
	}
}

// ValidateFile loads, compiles and validates a definition file. Load and
// compile failures are returned as an error and as a CONFIG_LOAD_FAILED
// result.
func ValidateFile(path string, strict bool) (ValidationResult, error) {
	def, err := definition.Load(path)
	if err != nil {
		return loadFailed(path, err), err
	}

	compiled, err := def.Compile(nil, nil)
	if err != nil {
		return loadFailed(path, err), err
	}

	var result ValidationResult
	if strict {
		result = ValidateStrict(FromDefinition(compiled))
	} else {
		result = Validate(FromDefinition(compiled))
	}

	return result.WithFile(path), nil
}

func loadFailed(path string, err error) ValidationResult {
	return ValidationResult{
		Valid: false,
		Errors: []ValidationError{{
			Code:     "CONFIG_LOAD_FAILED",
			Message:  fmt.Sprintf("Failed to load definition: %v", err),
			Location: Location{File: path},
		}},
	}
}
