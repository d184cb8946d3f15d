package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineConfigurationErrors(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("go")

	tests := []struct {
		name      string
		configure func(e *StateEngine[*session])
		want      error
	}{
		{
			name:      "nil from state",
			configure: func(e *StateEngine[*session]) { e.Add(nil, in, nil, s2) },
			want:      ErrNilState,
		},
		{
			name:      "nil next state",
			configure: func(e *StateEngine[*session]) { e.Add(s1, in, nil, nil) },
			want:      ErrNilState,
		},
		{
			name:      "nil input",
			configure: func(e *StateEngine[*session]) { e.Add(s1, nil, nil, s2) },
			want:      ErrNilInput,
		},
		{
			name:      "nil guard",
			configure: func(e *StateEngine[*session]) { e.AddGuarded(s1, nil, in, nil, s2) },
			want:      ErrNilGuard,
		},
		{
			name: "duplicate default",
			configure: func(e *StateEngine[*session]) {
				e.SetDefault(s1, nil, s2).SetDefault(s1, nil, s1)
			},
			want: ErrDuplicateDefault,
		},
		{
			name:      "nil default target",
			configure: func(e *StateEngine[*session]) { e.SetDefault(s1, nil, nil) },
			want:      ErrNilState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := newTestEngine(t, "config-"+tt.name)
			tt.configure(engine)

			err := engine.Done()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrConfiguration)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Len(t, cfgErr.Errs, 1)
		})
	}
}

func TestEngineFreeze(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("go")

	engine := newTestEngine(t, "freeze").Add(s1, in, nil, s2)
	require.NoError(t, engine.Err())
	assert.False(t, engine.Frozen())

	m, err := New(engine, s1, &session{})
	require.NoError(t, err)
	assert.True(t, engine.Frozen())

	engine.Add(s2, in, nil, s1)
	engine.AddGuarded(s2, Always[*session](), in, nil, s1)
	engine.SetDefault(s2, nil, s1)

	err = engine.Err()
	require.ErrorIs(t, err, ErrEngineFrozen)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Errs, 3)

	assert.Empty(t, engine.Lookup(s2, in))

	_, ok := engine.DefaultOf(s2)
	assert.False(t, ok)

	// The running FSM is unaffected.
	require.NoError(t, m.DoIt(t.Context(), in))
	assert.Same(t, s2, m.State())
}

func TestEngineUnguardedOverwriteKeepsSlot(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	a := NewState("a")
	b := NewState("b")
	c := NewState("c")
	in := NewInput("go")

	engine := newTestEngine(t, "overwrite").
		AddGuarded(s1, Never[*session](), in, nil, a).
		Add(s1, in, nil, b).
		AddGuarded(s1, Always[*session](), in, nil, a).
		Add(s1, in, nil, c)

	require.NoError(t, engine.Done())

	candidates := engine.Lookup(s1, in)
	require.Len(t, candidates, 3)
	assert.True(t, candidates[0].Guarded())
	assert.False(t, candidates[1].Guarded())
	assert.Same(t, c, candidates[1].Next)
	assert.True(t, candidates[2].Guarded())
}

func TestEngineLookupReturnsCopy(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("go")

	engine := newTestEngine(t, "copy").Add(s1, in, nil, s2)
	require.NoError(t, engine.Done())

	first := engine.Lookup(s1, in)
	first[0].Next = s1

	assert.Same(t, s2, engine.Lookup(s1, in)[0].Next)
	assert.Empty(t, engine.Lookup(s2, in))
}

func TestEngineIntrospection(t *testing.T) {
	t.Parallel()

	idle := NewState("idle")
	busy := NewState("busy")
	done := NewState("done")
	start := NewInput("start")
	finish := NewInput("finish")

	engine := newTestEngine(t, "introspect").
		Add(idle, start, NamedAction("begin", record("begin")), busy).
		AddGuarded(busy, NamedGuard("ready", result(Enabled)), finish, nil, done).
		AddGuarded(busy, Otherwise[*session](), finish, nil, idle).
		SetDefault(done, nil, idle)

	require.NoError(t, engine.Done())

	assert.Equal(t, []string{"idle", "busy", "done"}, names(engine.States()))
	assert.Len(t, engine.Inputs(), 2)

	s, ok := engine.StateByName("busy")
	require.True(t, ok)
	assert.Same(t, busy, s)

	_, ok = engine.StateByName("missing")
	assert.False(t, ok)

	in, ok := engine.InputByName("finish")
	require.True(t, ok)
	assert.Same(t, finish, in)

	table := engine.Table()
	assert.Equal(t, "introspect", table.Name)
	assert.Equal(t, []string{"idle", "busy", "done"}, table.States)
	assert.Equal(t, []string{"start", "finish"}, table.Inputs)
	assert.Equal(t, []Row{
		{From: "idle", Input: "start", To: "busy", Action: "begin"},
		{From: "busy", Input: "finish", To: "done", Guard: "ready"},
		{From: "busy", Input: "finish", To: "idle", Guard: "otherwise", Order: 1},
		{From: "done", To: "idle", Default: true},
	}, table.Rows)
}

func TestEngineFingerprint(t *testing.T) {
	t.Parallel()

	build := func(to string) *StateEngine[*session] {
		s1 := NewState("s1")
		in := NewInput("go")

		return newTestEngine(t, "fp").Add(s1, in, nil, NewState(to))
	}

	assert.Equal(t, build("s2").Fingerprint(), build("s2").Fingerprint())
	assert.NotEqual(t, build("s2").Fingerprint(), build("s3").Fingerprint())
}

func TestEngineFingerprintFixedAtFreeze(t *testing.T) {
	t.Parallel()

	s1, s2 := NewState("s1"), NewState("s2")
	in := NewInput("go")

	engine := newTestEngine(t, "frozen-fp").Add(s1, in, nil, s2)
	before := engine.Fingerprint()

	require.NoError(t, engine.Done())
	assert.Equal(t, before, engine.Fingerprint())
	assert.Equal(t, engine.Table().Fingerprint(), engine.Fingerprint())

	engine.Add(s2, in, nil, s1)
	require.ErrorIs(t, engine.Done(), ErrEngineFrozen)
	assert.Equal(t, before, engine.Fingerprint())
}

func TestEngineDeclare(t *testing.T) {
	t.Parallel()

	idle, a, b := NewState("idle"), NewState("a"), NewState("b")
	in := NewInput("go")

	engine := newTestEngine(t, "declare").
		Add(a, in, nil, b).
		Declare(idle, a)

	require.NoError(t, engine.Done())
	assert.Equal(t, []*State{a, b, idle}, engine.States())
	assert.Len(t, engine.Table().Rows, 1)

	found, ok := engine.StateByName("idle")
	require.True(t, ok)
	assert.Same(t, idle, found)

	engine.Declare(NewState("late"))
	require.ErrorIs(t, engine.Done(), ErrEngineFrozen)

	broken := newTestEngine(t, "declare-nil").Declare(nil)
	require.ErrorIs(t, broken.Done(), ErrNilState)
}

func TestFactory(t *testing.T) {
	t.Parallel()

	factory := NewFactory[*session](WithName("factory"), WithMetrics(false))

	first := factory.Create()
	second := factory.Create()

	assert.NotSame(t, first, second)
	assert.Equal(t, "factory", first.Name())
	assert.False(t, first.opts.metrics)

	custom := FactoryFunc[*session](func() *StateEngine[*session] {
		return NewStateEngine[*session](WithName("custom"))
	})
	assert.Equal(t, "custom", custom.Create().Name())
}

func TestConfigurationErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ConfigurationError{Engine: "e", Errs: []error{errors.New("one"), errors.New("two")}}

	assert.Equal(t, "state engine e: invalid state engine configuration: one; two", err.Error())
}
