package fsm

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
)

// session is the FSM data used across the package tests.
type session struct {
	Count int      `json:"count"`
	Log   []string `json:"log,omitempty"`
}

func newTestEngine(t *testing.T, name string) *StateEngine[*session] {
	t.Helper()

	return NewStateEngine[*session](
		WithName(name),
		WithLogger(NewSlogLogger(slogt.New(t))),
	)
}

// record returns an action appending tag to the session log.
func record(tag string) Action[*session] {
	return ActionFunc[*session](func(_ context.Context, m *FSM[*session], _ *Input) error {
		m.Data().Log = append(m.Data().Log, tag)

		return nil
	})
}

func failing(context.Context, *FSM[*session], *Input) error {
	return errBoom
}

func result(r Result) Guard[*session] {
	return GuardFunc[*session](func(context.Context, *FSM[*session], *Input) Result {
		return r
	})
}

func names(states []*State) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, s.Name())
	}

	return out
}
