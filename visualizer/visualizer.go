// Package visualizer renders state engine tables as Mermaid state diagrams
// and Graphviz DOT graphs.
package visualizer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Visualizer errors.
var (
	ErrNoInitialState = errors.New("initial state is required")
	ErrUnknownInitial = errors.New("initial state is not part of the table")
	ErrUnknownFormat  = errors.New("unknown diagram format")
)

// Formats.
const (
	FormatMermaid = "mermaid"
	FormatDOT     = "dot"
)

// Render dispatches on format.
func Render(format string, table fsm.Table, initial string, opts Options) (string, error) {
	switch strings.ToLower(format) {
	case FormatMermaid, "":
		return GenerateMermaidWithOptions(table, initial, opts)
	case FormatDOT:
		return GenerateDOTWithOptions(table, initial, opts)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// GenerateMermaid renders the table as a Mermaid state diagram.
func GenerateMermaid(table fsm.Table, initial string) (string, error) {
	return GenerateMermaidWithOptions(table, initial, DefaultOptions())
}

// GenerateMermaidWithOptions renders the table as a Mermaid state diagram.
// Mermaid has no dashed state edges, so default transitions are only told
// apart by their "default" label.
func GenerateMermaidWithOptions(table fsm.Table, initial string, opts Options) (string, error) {
	if err := checkInitial(table, initial); err != nil {
		return "", err
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", opts.direction())

	// Mermaid ids must be identifiers; other names get an alias.
	for _, name := range table.States {
		if id := mermaidID(name); id != name {
			fmt.Fprintf(&sb, "    state %q as %s\n", name, id)
		}
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", mermaidID(initial))

	sinks := sinkStates(table)

	for _, row := range table.Rows {
		fmt.Fprintf(&sb, "    %s --> %s: %s\n", mermaidID(row.From), mermaidID(row.To), edgeLabel(row, opts))
	}

	for _, name := range table.States {
		if sinks[name] {
			fmt.Fprintf(&sb, "    %s --> [*]\n", mermaidID(name))
		}
	}

	highlighted := highlightSet(table, opts)
	if len(highlighted) > 0 {
		sb.WriteString("\n")
		sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

		for _, name := range table.States {
			if highlighted[name] {
				fmt.Fprintf(&sb, "    class %s highlighted\n", mermaidID(name))
			}
		}
	}

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

// GenerateDOT renders the table as a Graphviz digraph.
func GenerateDOT(table fsm.Table, initial string) (string, error) {
	return GenerateDOTWithOptions(table, initial, DefaultOptions())
}

// GenerateDOTWithOptions renders the table as a Graphviz digraph. Default
// transitions are dashed; sink states are drawn with a double circle.
func GenerateDOTWithOptions(table fsm.Table, initial string, opts Options) (string, error) {
	if err := checkInitial(table, initial); err != nil {
		return "", err
	}

	var sb strings.Builder

	name := table.Name
	if name == "" {
		name = "fsm"
	}

	fmt.Fprintf(&sb, "digraph %s {\n", strconv.Quote(name))
	fmt.Fprintf(&sb, "  rankdir=%s;\n", opts.direction())
	sb.WriteString("  node [shape=circle];\n")
	sb.WriteString("  __start [shape=point];\n")

	sinks := sinkStates(table)
	highlighted := highlightSet(table, opts)

	for _, state := range table.States {
		var attrs []string

		if sinks[state] {
			attrs = append(attrs, "shape=doublecircle")
		}

		if highlighted[state] {
			attrs = append(attrs, "style=filled", `fillcolor="#fff9c4"`)
		}

		if len(attrs) == 0 {
			fmt.Fprintf(&sb, "  %s;\n", strconv.Quote(state))
		} else {
			fmt.Fprintf(&sb, "  %s [%s];\n", strconv.Quote(state), strings.Join(attrs, ", "))
		}
	}

	fmt.Fprintf(&sb, "  __start -> %s;\n", strconv.Quote(initial))

	for _, row := range table.Rows {
		attrs := []string{"label=" + strconv.Quote(edgeLabel(row, opts))}
		if row.Default {
			attrs = append(attrs, "style=dashed")
		}

		fmt.Fprintf(&sb, "  %s -> %s [%s];\n",
			strconv.Quote(row.From), strconv.Quote(row.To), strings.Join(attrs, ", "))
	}

	sb.WriteString("}\n")

	return sb.String(), nil
}

func checkInitial(table fsm.Table, initial string) error {
	if initial == "" {
		return ErrNoInitialState
	}

	if !slices.Contains(table.States, initial) {
		return fmt.Errorf("%w: %q", ErrUnknownInitial, initial)
	}

	return nil
}

func edgeLabel(row fsm.Row, opts Options) string {
	if row.Default {
		return join("default", actionSuffix(row, opts))
	}

	label := row.Input

	if opts.ShowGuards && row.Guarded() {
		label = fmt.Sprintf("%s [%s] #%d", label, row.Guard, row.Order+1)
	}

	return join(label, actionSuffix(row, opts))
}

func actionSuffix(row fsm.Row, opts Options) string {
	if !opts.ShowActions || row.Action == "" {
		return ""
	}

	return "/ " + row.Action
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return strings.Join(out, " ")
}

// sinkStates returns the states with no outgoing row.
func sinkStates(table fsm.Table) map[string]bool {
	outgoing := make(map[string]bool, len(table.States))
	for _, row := range table.Rows {
		outgoing[row.From] = true
	}

	sinks := make(map[string]bool)

	for _, s := range table.States {
		if !outgoing[s] {
			sinks[s] = true
		}
	}

	return sinks
}

func highlightSet(table fsm.Table, opts Options) map[string]bool {
	set := make(map[string]bool, len(opts.HighlightPath))

	for _, s := range opts.HighlightPath {
		if slices.Contains(table.States, s) {
			set[s] = true
		}
	}

	return set
}

func mermaidID(name string) string {
	var sb strings.Builder

	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteRune('_')
			}

			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	if sb.Len() == 0 {
		return "_"
	}

	return sb.String()
}
