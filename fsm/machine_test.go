package fsm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New[*session](nil, NewState("s"), nil)
	require.ErrorIs(t, err, ErrNilEngine)

	_, err = New(newTestEngine(t, "new-nil-initial"), nil, &session{})
	require.ErrorIs(t, err, ErrNilState)

	broken := newTestEngine(t, "new-broken").Add(nil, NewInput("x"), nil, nil)
	_, err = New(broken, NewState("s"), &session{})
	require.ErrorIs(t, err, ErrConfiguration)

	m, err := New(newTestEngine(t, "new-ok"), NewState("s"), &session{Count: 3}, WithID("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", m.ID())
	assert.Equal(t, 3, m.Data().Count)
	assert.Equal(t, "new-ok", m.Engine().Name())
}

func TestDoItGuardArbitration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		results []Result
		want    string
	}{
		{name: "first enabled wins", results: []Result{Enabled, Enabled}, want: "t0"},
		{name: "enabled after disabled", results: []Result{Disabled, Enabled}, want: "t1"},
		{name: "enabled beats earlier default", results: []Result{Default, Enabled}, want: "t1"},
		{name: "first default when none enabled", results: []Result{Disabled, Default, Default}, want: "t1"},
		{name: "unknown result counts as disabled", results: []Result{Result(42), Enabled}, want: "t1"},
		{name: "all disabled falls back to state default", results: []Result{Disabled, Disabled}, want: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			start := NewState("start")
			in := NewInput("in")
			engine := newTestEngine(t, "arbitration")

			for i, r := range tt.results {
				engine.AddGuarded(start, result(r), in, nil, NewState("t"+string(rune('0'+i))))
			}

			engine.SetDefault(start, nil, NewState("fallback"))

			m, err := New(engine, start, &session{})
			require.NoError(t, err)

			require.NoError(t, m.DoIt(t.Context(), in))
			assert.Equal(t, tt.want, m.State().Name())
		})
	}
}

func TestDoItUnguardedIsEnabledInOrder(t *testing.T) {
	t.Parallel()

	start := NewState("start")
	guarded := NewState("guarded")
	plain := NewState("plain")
	in := NewInput("in")

	engine := newTestEngine(t, "unguarded-order").
		AddGuarded(start, result(Default), in, nil, guarded).
		Add(start, in, nil, plain)

	m, err := New(engine, start, &session{})
	require.NoError(t, err)

	require.NoError(t, m.DoIt(t.Context(), in))
	assert.Same(t, plain, m.State())
}

func TestDoItOverwriteLastWins(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	s3 := NewState("s3")
	in := NewInput("in")

	engine := newTestEngine(t, "last-wins").
		Add(s1, in, record("first"), s2).
		Add(s1, in, record("second"), s3)

	data := &session{}
	m, err := New(engine, s1, data)
	require.NoError(t, err)

	require.NoError(t, m.DoIt(t.Context(), in))
	assert.Same(t, s3, m.State())
	assert.Equal(t, []string{"second"}, data.Log)
}

func TestDoItDefaultFallback(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	known := NewInput("known")
	other := NewInput("other")

	engine := newTestEngine(t, "default").
		Add(s1, known, record("known"), s1).
		SetDefault(s1, record("default"), s2)

	data := &session{}
	m, err := New(engine, s1, data)
	require.NoError(t, err)

	require.NoError(t, m.DoIt(t.Context(), known))
	assert.Same(t, s1, m.State())

	require.NoError(t, m.DoIt(t.Context(), other))
	assert.Same(t, s2, m.State())
	assert.Equal(t, []string{"known", "default"}, data.Log)
}

func TestDoItNoTransition(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	known := NewInput("known")
	unknown := NewInput("unknown")

	engine := newTestEngine(t, "no-transition").Add(s1, known, nil, s2)

	m, err := New(engine, s1, &session{})
	require.NoError(t, err)

	err = m.DoIt(t.Context(), unknown)
	require.ErrorIs(t, err, ErrNoTransition)

	var noTransition *NoTransitionError
	require.ErrorAs(t, err, &noTransition)
	assert.Same(t, s1, noTransition.State)
	assert.Same(t, unknown, noTransition.Input)
	assert.Same(t, s1, m.State())
	assert.False(t, m.Accepts(t.Context(), unknown))
	assert.True(t, m.Accepts(t.Context(), known))

	require.ErrorIs(t, m.DoIt(t.Context(), nil), ErrNilInput)
}

func TestDoItActionFailureIsAtomic(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("in")

	engine := newTestEngine(t, "atomic").
		Add(s1, in, ActionFunc[*session](func(context.Context, *FSM[*session], *Input) error {
			return errBoom
		}), s2)

	m, err := New(engine, s1, &session{})
	require.NoError(t, err)

	err = m.DoIt(t.Context(), in)
	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, err, ErrActionFailed)

	var actionErr *ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Same(t, s1, actionErr.From)
	assert.Same(t, s2, actionErr.To)
	assert.Same(t, in, actionErr.Input)

	assert.Same(t, s1, m.State())
}

func TestDoItActionSeesPreviousState(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("in")

	var seen *State

	engine := newTestEngine(t, "pre-state").
		Add(s1, in, ActionFunc[*session](func(_ context.Context, m *FSM[*session], _ *Input) error {
			seen = m.State()

			return nil
		}), s2)

	m, err := New(engine, s1, &session{})
	require.NoError(t, err)

	require.NoError(t, m.DoIt(t.Context(), in))
	assert.Same(t, s1, seen)
	assert.Same(t, s2, m.State())
}

func TestDoItGuardsReadData(t *testing.T) {
	t.Parallel()

	counting := NewState("counting")
	done := NewState("done")
	tick := NewInput("tick")

	limitReached := BoolGuard(func(_ context.Context, m *FSM[*session], _ *Input) bool {
		return m.Data().Count >= 2
	})
	increment := ActionFunc[*session](func(_ context.Context, m *FSM[*session], _ *Input) error {
		m.Data().Count++

		return nil
	})

	engine := newTestEngine(t, "guards-read-data").
		AddGuarded(counting, limitReached, tick, nil, done).
		AddGuarded(counting, Complement(limitReached), tick, increment, counting)

	m, err := New(engine, counting, &session{})
	require.NoError(t, err)

	require.NoError(t, m.DoIt(t.Context(), tick))
	require.NoError(t, m.DoIt(t.Context(), tick))
	assert.Same(t, counting, m.State())

	require.NoError(t, m.DoIt(t.Context(), tick))
	assert.Same(t, done, m.State())
	assert.Equal(t, 2, m.Data().Count)
}

func TestDoItDeterministic(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("in")

	engine := newTestEngine(t, "deterministic").
		AddGuarded(s1, result(Default), in, nil, s1).
		AddGuarded(s1, result(Disabled), in, nil, s2)

	for range 10 {
		m, err := New(engine, s1, &session{})
		require.NoError(t, err)

		require.NoError(t, m.DoIt(t.Context(), in))
		assert.Same(t, s1, m.State())
	}
}

// goldenFixture builds the regression fixture used by the end-to-end traces.
func goldenFixture(t *testing.T) (*StateEngine[*session], [4]*State, [4]*Input) {
	t.Helper()

	s := [4]*State{NewState("STATE1"), NewState("STATE2"), NewState("STATE3"), NewState("STATE4")}
	i := [4]*Input{NewInput("INPUT1"), NewInput("INPUT2"), NewInput("INPUT3"), NewInput("INPUT4")}

	engine := newTestEngine(t, "golden").
		Add(s[0], i[0], nil, s[0]).
		SetDefault(s[0], nil, s[1]).
		Add(s[1], i[0], nil, s[1]).
		Add(s[1], i[1], nil, s[1]).
		Add(s[1], i[2], nil, s[0]).
		Add(s[1], i[3], nil, s[2]).
		Add(s[2], i[0], nil, s[2]).
		Add(s[2], i[0], nil, s[3]).
		Add(s[2], i[1], nil, s[0]).
		Add(s[2], i[2], nil, s[1]).
		Add(s[2], i[3], nil, s[1])

	return engine, s, i
}

func TestGoldenTraceLiteralInputs(t *testing.T) {
	t.Parallel()

	engine, s, i := goldenFixture(t)

	m, err := New(engine, s[0], &session{})
	require.NoError(t, err)

	inputs := []*Input{i[0], i[0], i[3], i[0], i[1], i[2]}
	want := []*State{s[0], s[0], s[1], s[1], s[1], s[0]}

	for step, in := range inputs {
		require.NoError(t, m.DoIt(t.Context(), in), "step %d", step)
		assert.Same(t, want[step], m.State(), "step %d: got %s", step, m.State())
	}
}

func TestGoldenTrace(t *testing.T) {
	t.Parallel()

	engine, s, i := goldenFixture(t)
	engine.SetDefault(s[3], nil, s[0])

	m, err := New(engine, s[0], &session{})
	require.NoError(t, err)

	steps := []struct {
		input *Input
		want  *State
	}{
		{i[0], s[0]}, // explicit self-loop
		{i[1], s[1]}, // STATE1 default
		{i[3], s[2]},
		{i[0], s[3]}, // overwritten STATE3/INPUT1 registration
		{i[1], s[0]}, // STATE4 default
		{i[2], s[1]}, // STATE1 default
	}

	for n, step := range steps {
		require.NoError(t, m.DoIt(t.Context(), step.input), "step %d", n)
		assert.Same(t, step.want, m.State(), "step %d: got %s", n, m.State())
	}

	require.ErrorIs(t, m.DoIt(t.Context(), NewInput("INPUT1")), ErrNoTransition)
}

func TestSharedEngineConcurrentMachines(t *testing.T) {
	t.Parallel()

	s1 := NewState("s1")
	s2 := NewState("s2")
	in := NewInput("in")

	engine := newTestEngine(t, "shared").
		Add(s1, in, nil, s2).
		Add(s2, in, nil, s1)
	require.NoError(t, engine.Done())

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			m, err := New(engine, s1, &session{})
			if !assert.NoError(t, err) {
				return
			}

			for range 100 {
				assert.NoError(t, m.DoIt(context.Background(), in))
			}

			assert.Same(t, s1, m.State())
		}()
	}

	wg.Wait()
}
