package definition

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileFile(t *testing.T, path string) *Machine {
	t.Helper()

	def, err := Load(path)
	require.NoError(t, err)

	machine, err := def.Compile(nil, nil)
	require.NoError(t, err)

	return machine
}

func compileYAML(t *testing.T, src string) *Machine {
	t.Helper()

	def, err := LoadFromBytes([]byte(src))
	require.NoError(t, err)

	machine, err := def.Compile(fsm.NewFactory[*Bindings](fsm.WithName(def.Name), fsm.WithMetrics(false)), nil)
	require.NoError(t, err)

	return machine
}

func feedAll(t *testing.T, machine *Machine, f *fsm.FSM[*Bindings], inputs ...string) {
	t.Helper()

	for _, in := range inputs {
		require.NoError(t, machine.Feed(t.Context(), f, in), "input %s in state %s", in, f.State())
	}
}

func TestCompiledConnectionLifecycle(t *testing.T) {
	t.Parallel()

	machine := compileFile(t, "testdata/connection.yaml")
	assert.True(t, machine.Engine.Frozen())
	assert.Equal(t, "connection", machine.Engine.Name())

	f, err := machine.New(BindingsFrom(map[string]any{"limit": 2}))
	require.NoError(t, err)
	assert.Equal(t, "handshake", f.State().Name())

	feedAll(t, machine, f, "hello", "request", "request")
	assert.Equal(t, "active", f.State().Name())

	greeted, _ := f.Data().Get("greeted")
	assert.Equal(t, true, greeted)

	inflight, _ := f.Data().Get("inflight")
	assert.Equal(t, 2, inflight)

	// Out of capacity: the otherwise candidate is taken.
	feedAll(t, machine, f, "request")
	assert.Equal(t, "draining", f.State().Name())

	feedAll(t, machine, f, "reply")
	assert.Equal(t, "closed", f.State().Name())

	closedAt, _ := f.Data().Get("closed_at_state")
	assert.Equal(t, "draining", closedAt)

	inflight, _ = f.Data().Get("inflight")
	assert.EqualValues(t, 0, inflight)
}

func TestCompiledUnlessGuard(t *testing.T) {
	t.Parallel()

	machine := compileFile(t, "testdata/connection.yaml")

	f, err := machine.New(BindingsFrom(map[string]any{"limit": 5}))
	require.NoError(t, err)

	feedAll(t, machine, f, "hello")

	// Nothing in flight, so the reply guard is disabled and active has no default.
	err = machine.Feed(t.Context(), f, "reply")
	require.ErrorIs(t, err, fsm.ErrNoTransition)
	assert.Equal(t, "active", f.State().Name())

	feedAll(t, machine, f, "request", "reply")

	inflight, _ := f.Data().Get("inflight")
	assert.Equal(t, 0, inflight)
}

func TestCompiledDefaultTransition(t *testing.T) {
	t.Parallel()

	machine := compileFile(t, "testdata/connection.yaml")

	f, err := machine.New(nil)
	require.NoError(t, err)

	feedAll(t, machine, f, "timeout")
	assert.Equal(t, "closed", f.State().Name())

	err = machine.Feed(t.Context(), f, "bogus")
	require.ErrorIs(t, err, ErrUnknownInput)
}

func TestScriptFailLeavesStateAndBindings(t *testing.T) {
	t.Parallel()

	machine := compileYAML(t, `
name: failing
initial: a
states: [a, b]
inputs: [go]
transitions:
  - from: a
    input: go
    to: b
    actions:
      - type: script
        parameters:
          code: |
            set("touched", true);
            if (bindings.allow !== true) { fail("not allowed"); }
            set("done", true);
`)

	f, err := machine.New(nil)
	require.NoError(t, err)

	err = machine.Feed(t.Context(), f, "go")
	require.ErrorIs(t, err, ErrFailed)
	require.ErrorIs(t, err, fsm.ErrActionFailed)
	assert.ErrorContains(t, err, "not allowed")
	assert.Equal(t, "a", f.State().Name())
	assert.Equal(t, 0, f.Data().Len())

	f.Data().Set("allow", true)
	feedAll(t, machine, f, "go")
	assert.Equal(t, "b", f.State().Name())
	assert.Equal(t, []string{"allow", "done", "touched"}, f.Data().Keys())
}

func TestScriptInterrupted(t *testing.T) {
	t.Parallel()

	machine := compileYAML(t, `
name: spinning
initial: a
states: [a, b]
inputs: [go]
transitions:
  - from: a
    input: go
    to: b
    actions:
      - type: script
        parameters:
          code: "while (true) {}"
`)

	f, err := machine.New(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	err = machine.Feed(ctx, f, "go")
	require.ErrorIs(t, err, ErrScriptInterrupted)
	assert.Equal(t, "a", f.State().Name())
}

func TestExpressionGuardResults(t *testing.T) {
	t.Parallel()

	machine := compileYAML(t, `
name: results
initial: start
states: [start, first, second, fallback]
inputs: [go]
transitions:
  - from: start
    input: go
    to: first
    guard: "bindings.mode === 'first' ? true : 'default'"
  - from: start
    input: go
    to: second
    guard: "bindings.mode === 'second'"
  - from: start
    input: go
    to: fallback
    guard: "undefinedFunction()"
`)

	tests := []struct {
		mode string
		want string
	}{
		{mode: "first", want: "first"},
		{mode: "second", want: "second"},
		{mode: "other", want: "first"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			t.Parallel()

			f, err := machine.New(BindingsFrom(map[string]any{"mode": tt.mode}))
			require.NoError(t, err)

			feedAll(t, machine, f, "go")
			assert.Equal(t, tt.want, f.State().Name())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	def, err := LoadFromBytes([]byte(`
name: broken
initial: a
states: [a]
inputs: [go]
transitions:
  - from: a
    input: go
    to: a
    guard: "this is not javascript"
  - from: a
    input: go
    to: a
    actions:
      - type: teleport
`))
	require.NoError(t, err)

	_, err = def.Compile(nil, nil)
	require.ErrorIs(t, err, ErrInvalidExpression)
	require.ErrorIs(t, err, ErrUnknownActionType)
}

func TestMachineSnapshotRestore(t *testing.T) {
	t.Parallel()

	machine := compileFile(t, "testdata/connection.yaml")

	f, err := machine.New(BindingsFrom(map[string]any{"limit": 3}), fsm.WithID("conn-1"))
	require.NoError(t, err)

	feedAll(t, machine, f, "hello", "request")

	snap, err := f.Snapshot(EncodeBindings)
	require.NoError(t, err)
	assert.Equal(t, "active", snap.State)

	restored, err := machine.Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, "conn-1", restored.ID())
	assert.Same(t, f.State(), restored.State())

	limit, _ := restored.Data().Get("limit")
	assert.InDelta(t, 3, limit, 0)

	feedAll(t, machine, restored, "request", "request")
	assert.Equal(t, "active", restored.State().Name())

	feedAll(t, machine, restored, "request")
	assert.Equal(t, "draining", restored.State().Name())
}

func TestMachineRestoreStateWithoutTransitions(t *testing.T) {
	t.Parallel()

	machine := compileYAML(t, `
name: lazy
initial: idle
states: [idle, a, b]
inputs: [go]
transitions:
  - {from: a, input: go, to: b}
`)

	f, err := machine.New(nil, fsm.WithID("lazy-1"))
	require.NoError(t, err)

	snap, err := f.Snapshot(EncodeBindings)
	require.NoError(t, err)
	assert.Equal(t, "idle", snap.State)

	restored, err := machine.Restore(snap)
	require.NoError(t, err)

	idle, ok := machine.State("idle")
	require.True(t, ok)
	assert.Same(t, idle, restored.State())
	assert.Contains(t, machine.Engine.Table().States, "idle")
}
