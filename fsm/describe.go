package fsm

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// Table is a name-based, non-generic view of an engine's transitions, used
// by the visualizer, the validator and snapshots.
type Table struct {
	Name   string
	States []string
	Inputs []string
	Rows   []Row
}

// Row is one registered transition. Default rows have an empty Input.
type Row struct {
	From    string
	Input   string
	To      string
	Guard   string
	Action  string
	Order   int
	Default bool
}

// Guarded reports whether the row carries a guard.
func (r Row) Guarded() bool {
	return r.Guard != ""
}

// Table describes the engine's registrations. Rows are ordered by the first
// registration of each state and input pair, candidates in evaluation
// order, followed by the default transitions in state order.
func (e *StateEngine[C]) Table() Table {
	if !e.frozen.Load() {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	return e.tableLocked()
}

func (e *StateEngine[C]) tableLocked() Table {
	table := Table{
		Name:   e.opts.name,
		States: make([]string, 0, len(e.states)),
		Inputs: make([]string, 0, len(e.inputs)),
	}

	for _, s := range e.states {
		table.States = append(table.States, s.Name())
	}

	for _, in := range e.inputs {
		table.Inputs = append(table.Inputs, in.Name())
	}

	for _, k := range e.keys {
		for i, t := range e.entries[k] {
			table.Rows = append(table.Rows, Row{
				From:   k.state.Name(),
				Input:  k.input.Name(),
				To:     t.Next.Name(),
				Guard:  t.GuardName(),
				Action: t.ActionName(),
				Order:  i,
			})
		}
	}

	for _, s := range e.states {
		t, ok := e.defaults[s]
		if !ok {
			continue
		}

		table.Rows = append(table.Rows, Row{
			From:    s.Name(),
			To:      t.Next.Name(),
			Action:  t.ActionName(),
			Default: true,
		})
	}

	return table
}

// Fingerprint returns a hash of the engine's shape: its states, inputs and
// transitions by name and order. Guard and action behavior is not covered.
// A frozen engine returns the value computed when it was frozen.
func (e *StateEngine[C]) Fingerprint() uint64 {
	if e.frozen.Load() {
		return e.fingerprint
	}

	return e.Table().Fingerprint()
}

// Fingerprint returns a hash of the table's states, inputs and rows.
func (t Table) Fingerprint() uint64 {
	h := xxh3.New()

	write := func(fields ...string) {
		for _, f := range fields {
			_, _ = h.WriteString(f)
			_, _ = h.Write([]byte{0})
		}

		_, _ = h.Write([]byte{'\n'})
	}

	write(t.States...)
	write(t.Inputs...)

	for _, r := range t.Rows {
		write(r.From, r.Input, r.To, r.Guard, strconv.Itoa(r.Order), strconv.FormatBool(r.Default))
	}

	return h.Sum64()
}
