package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotEngine(t *testing.T, target string) (*StateEngine[*session], *State, *Input) {
	t.Helper()

	start := NewState("start")
	in := NewInput("next")

	engine := newTestEngine(t, "snapshot").
		Add(start, in, record("moved"), NewState(target))

	return engine, start, in
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	engine, start, in := snapshotEngine(t, "end")

	m, err := New(engine, start, &session{Count: 7}, WithID("order-1"))
	require.NoError(t, err)
	require.NoError(t, m.DoIt(t.Context(), in))

	snap, err := m.Snapshot(JSONEncoder[*session]())
	require.NoError(t, err)
	assert.Equal(t, "order-1", snap.ID)
	assert.Equal(t, "snapshot", snap.Engine)
	assert.Equal(t, "end", snap.State)
	assert.Equal(t, engine.Fingerprint(), snap.Fingerprint)
	assert.JSONEq(t, `{"count":7,"log":["moved"]}`, string(snap.Data))
	assert.False(t, snap.UpdatedAt.IsZero())

	restored, err := Restore(engine, snap, JSONDecoder[*session]())
	require.NoError(t, err)
	assert.Equal(t, "order-1", restored.ID())
	assert.Same(t, m.State(), restored.State())
	assert.Equal(t, 7, restored.Data().Count)
	assert.Equal(t, []string{"moved"}, restored.Data().Log)
}

func TestRestoreErrors(t *testing.T) {
	t.Parallel()

	engine, _, _ := snapshotEngine(t, "end")
	other, _, _ := snapshotEngine(t, "elsewhere")

	tests := []struct {
		name   string
		engine *StateEngine[*session]
		snap   *Snapshot
		decode Decoder[*session]
		want   error
	}{
		{
			name: "nil engine",
			snap: &Snapshot{State: "start"},
			want: ErrNilEngine,
		},
		{
			name:   "fingerprint mismatch",
			engine: engine,
			snap:   &Snapshot{State: "start", Fingerprint: other.Fingerprint()},
			want:   ErrSnapshotMismatch,
		},
		{
			name:   "unknown state",
			engine: engine,
			snap:   &Snapshot{State: "nowhere"},
			want:   ErrUnknownState,
		},
		{
			name:   "decode failure",
			engine: engine,
			snap:   &Snapshot{State: "start", Data: []byte(`{}`)},
			decode: func([]byte) (*session, error) { return nil, errBoom },
			want:   errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Restore(tt.engine, tt.snap, tt.decode)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSnapshotEncodeError(t *testing.T) {
	t.Parallel()

	engine, start, _ := snapshotEngine(t, "end")

	m, err := New(engine, start, &session{})
	require.NoError(t, err)

	_, err = m.Snapshot(func(*session) ([]byte, error) { return nil, errBoom })
	require.ErrorIs(t, err, errBoom)

	snap, err := m.Snapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, snap.Data)

	restored, err := Restore(engine, snap, nil)
	require.NoError(t, err)
	assert.Nil(t, restored.Data())
	require.ErrorIs(t, restored.DoIt(t.Context(), NewInput("other")), ErrNoTransition)
}
