//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"slices"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// RuleResult contains the issues found by one rule.
type RuleResult struct {
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// Rule checks a machine for one kind of problem.
type Rule interface {
	Name() string
	Severity() Severity
	Check(m Machine) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&initialStateRule{},
		&unreachableStateRule{},
		&shadowedTransitionRule{},
		&duplicateGuardRule{},
		&sinkStateRule{},
		&selfLoopRule{},
	}
}

// initialStateRule checks that the initial state is part of the table.
type initialStateRule struct{}

func (r *initialStateRule) Name() string {
	return "InitialState"
}

func (r *initialStateRule) Severity() Severity {
	return SeverityError
}

func (r *initialStateRule) Check(m Machine) RuleResult {
	if slices.Contains(m.Table.States, m.Initial) {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:     "UNKNOWN_INITIAL_STATE",
		Message:  fmt.Sprintf("Initial state '%s' has no registered transitions", m.Initial),
		Location: Location{State: m.Initial},
		Fix:      &Fix{Description: fmt.Sprintf("Register a transition from or to '%s'", m.Initial)},
	}}}
}

// unreachableStateRule checks for states that cannot be reached from the
// initial state, following both input and default transitions.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityError
}

func (r *unreachableStateRule) Check(m Machine) RuleResult {
	var errors []ValidationError

	if !slices.Contains(m.Table.States, m.Initial) {
		return RuleResult{}
	}

	graph := adjacency(m.Table)
	reachable := map[string]bool{m.Initial: true}

	queue := []string{m.Initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range graph[current] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, state := range m.Table.States {
		if !reachable[state] {
			errors = append(errors, ValidationError{
				Code:     "UNREACHABLE_STATE",
				Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state, m.Initial),
				Location: Location{State: state},
				Fix:      &Fix{Description: fmt.Sprintf("Add a transition to '%s' or remove its registrations", state)},
			})
		}
	}

	return RuleResult{Errors: errors}
}

// shadowedTransitionRule warns about candidates registered after an
// unguarded candidate for the same state and input. The unguarded one is
// always enabled, so later candidates are never evaluated.
type shadowedTransitionRule struct{}

func (r *shadowedTransitionRule) Name() string {
	return "ShadowedTransition"
}

func (r *shadowedTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *shadowedTransitionRule) Check(m Machine) RuleResult {
	var warnings []ValidationWarning

	for _, group := range candidateGroups(m.Table) {
		unguarded := -1

		for i, row := range group {
			if unguarded >= 0 {
				warnings = append(warnings, ValidationWarning{
					Code: "SHADOWED_TRANSITION",
					Message: fmt.Sprintf("Transition '%s' --%s--> '%s' (candidate %d) can never be taken: candidate %d is unguarded",
						row.From, row.Input, row.To, row.Order+1, unguarded+1),
					Location: Location{State: row.From, Input: row.Input},
				})

				continue
			}

			if !row.Guarded() {
				unguarded = i
			}
		}
	}

	return RuleResult{Warnings: warnings}
}

// duplicateGuardRule warns about the same guard registered twice for one
// state and input. Whatever the guard yields, the first registration wins.
type duplicateGuardRule struct{}

func (r *duplicateGuardRule) Name() string {
	return "DuplicateGuard"
}

func (r *duplicateGuardRule) Severity() Severity {
	return SeverityWarning
}

func (r *duplicateGuardRule) Check(m Machine) RuleResult {
	var warnings []ValidationWarning

	for _, group := range candidateGroups(m.Table) {
		seen := make(map[string]int)

		for _, row := range group {
			// Anonymous guards all share the fallback name.
			if !row.Guarded() || row.Guard == "guard" {
				continue
			}

			if first, ok := seen[row.Guard]; ok {
				warnings = append(warnings, ValidationWarning{
					Code: "DUPLICATE_GUARD",
					Message: fmt.Sprintf("Guard '%s' on '%s' --%s--> is registered as candidates %d and %d; the later one can never be taken",
						row.Guard, row.From, row.Input, first+1, row.Order+1),
					Location: Location{State: row.From, Input: row.Input},
				})

				continue
			}

			seen[row.Guard] = row.Order
		}
	}

	return RuleResult{Warnings: warnings}
}

// sinkStateRule warns about non-final states that no input can leave.
type sinkStateRule struct{}

func (r *sinkStateRule) Name() string {
	return "SinkState"
}

func (r *sinkStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *sinkStateRule) Check(m Machine) RuleResult {
	var warnings []ValidationWarning

	outgoing := make(map[string]bool)
	for _, row := range m.Table.Rows {
		outgoing[row.From] = true
	}

	for _, state := range m.Table.States {
		if outgoing[state] || slices.Contains(m.Final, state) {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "SINK_STATE",
			Message:  fmt.Sprintf("State '%s' has no outgoing transitions and no default; every input there fails", state),
			Location: Location{State: state},
		})
	}

	return RuleResult{Warnings: warnings}
}

// selfLoopRule suggests reviewing states whose every transition returns to
// the state itself. Nothing can move a machine out of them.
type selfLoopRule struct{}

func (r *selfLoopRule) Name() string {
	return "SelfLoop"
}

func (r *selfLoopRule) Severity() Severity {
	return SeverityInfo
}

func (r *selfLoopRule) Check(m Machine) RuleResult {
	var suggestions []Suggestion

	exits := make(map[string]bool)
	loops := make(map[string]bool)

	for _, row := range m.Table.Rows {
		if row.From == row.To {
			loops[row.From] = true
		} else {
			exits[row.From] = true
		}
	}

	for _, state := range m.Table.States {
		if loops[state] && !exits[state] && !slices.Contains(m.Final, state) {
			suggestions = append(suggestions, Suggestion{
				Message:  fmt.Sprintf("State '%s' only transitions to itself; consider marking it final or adding an exit", state),
				Location: Location{State: state},
			})
		}
	}

	return RuleResult{Suggestions: suggestions}
}

func adjacency(table fsm.Table) map[string][]string {
	graph := make(map[string][]string)
	for _, row := range table.Rows {
		graph[row.From] = append(graph[row.From], row.To)
	}

	return graph
}

// candidateGroups returns the non-default rows grouped by state and input,
// in table order.
func candidateGroups(table fsm.Table) [][]fsm.Row {
	type key struct{ from, input string }

	var (
		order  []key
		groups = make(map[key][]fsm.Row)
	)

	for _, row := range table.Rows {
		if row.Default {
			continue
		}

		k := key{row.From, row.Input}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}

		groups[k] = append(groups[k], row)
	}

	out := make([][]fsm.Row, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}

	return out
}
