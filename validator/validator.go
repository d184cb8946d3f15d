// Package validator checks the structure of a state engine table for states
// that can never be entered, transitions that can never be taken, and
// states that trap a machine.
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Machine is what the rules inspect: an engine table, the state machines
// start in, and the states where stopping is expected.
type Machine struct {
	Table   fsm.Table
	Initial string
	Final   []string
}

// ValidationResult contains the results of validating a machine.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with an optional fix.
type ValidationError struct {
	Code     string   // Error code like "UNREACHABLE_STATE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message  string
	Location Location
}

// Location identifies where an issue occurred.
type Location struct {
	File  string // Definition file path, when known
	State string
	Input string
}

// Fix describes how to resolve an error.
type Fix struct {
	Description string
}

// Validate runs the default rules.
func Validate(m Machine) ValidationResult {
	return ValidateWithRules(m, DefaultRules())
}

// ValidateStrict runs the default rules and treats warnings as errors.
func ValidateStrict(m Machine) ValidationResult {
	return ValidateWithRulesStrict(m, DefaultRules())
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(m Machine, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, rule := range rules {
		ruleResult := rule.Check(m)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
		result.Suggestions = append(result.Suggestions, ruleResult.Suggestions...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(m Machine, rules []Rule) ValidationResult {
	result := ValidateWithRules(m, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError{
			Code:     warning.Code,
			Message:  warning.Message,
			Location: warning.Location,
		})
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// WithFile sets the file location on every issue that has none.
func (r ValidationResult) WithFile(path string) ValidationResult {
	for i := range r.Errors {
		if r.Errors[i].Location.File == "" {
			r.Errors[i].Location.File = path
		}
	}

	for i := range r.Warnings {
		if r.Warnings[i].Location.File == "" {
			r.Warnings[i].Location.File = path
		}
	}

	for i := range r.Suggestions {
		if r.Suggestions[i].Location.File == "" {
			r.Suggestions[i].Location.File = path
		}
	}

	return r
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("machine is valid\n")
	} else {
		fmt.Fprintf(&sb, "machine has %d error(s):\n", len(r.Errors))

		for _, err := range r.Errors {
			fmt.Fprintf(&sb, "  [%s] %s\n", err.Code, err.Message)

			if err.Fix != nil {
				fmt.Fprintf(&sb, "    fix: %s\n", err.Fix.Description)
			}
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "%d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "%d suggestion(s):\n", len(r.Suggestions))

		for _, s := range r.Suggestions {
			fmt.Fprintf(&sb, "  %s\n", s.Message)
		}
	}

	return sb.String()
}
