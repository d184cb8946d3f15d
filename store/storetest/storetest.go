// Package storetest provides a conformance suite for store.Store
// implementations.
package storetest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Snapshot returns a snapshot fixture.
func Snapshot(engine, id, state string) *fsm.Snapshot {
	return &fsm.Snapshot{
		ID:          id,
		Engine:      engine,
		Fingerprint: 42,
		State:       state,
		Data:        json.RawMessage(`{"count":1}`),
		UpdatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// Run exercises the Store contract against stores created by newStore.
// Each subtest gets its own store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		want := Snapshot("orders", "a", "open")
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx, "orders", "a")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Engine, got.Engine)
		assert.Equal(t, want.Fingerprint, got.Fingerprint)
		assert.Equal(t, want.State, got.State)
		assert.JSONEq(t, string(want.Data), string(got.Data))
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Save(ctx, Snapshot("orders", "a", "open")))
		require.NoError(t, s.Save(ctx, Snapshot("orders", "a", "closed")))

		got, err := s.Load(ctx, "orders", "a")
		require.NoError(t, err)
		assert.Equal(t, "closed", got.State)
	})

	t.Run("engines are separate", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Save(ctx, Snapshot("orders", "a", "open")))
		require.NoError(t, s.Save(ctx, Snapshot("payments", "a", "pending")))

		got, err := s.Load(ctx, "payments", "a")
		require.NoError(t, err)
		assert.Equal(t, "pending", got.State)
	})

	t.Run("missing", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		_, err := s.Load(ctx, "orders", "missing")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, s.Delete(ctx, "orders", "missing"), store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		require.NoError(t, s.Save(ctx, Snapshot("orders", "a", "open")))
		require.NoError(t, s.Delete(ctx, "orders", "a"))

		_, err := s.Load(ctx, "orders", "a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		s := newStore(t)
		ctx := t.Context()

		ids, err := s.List(ctx, "orders")
		require.NoError(t, err)
		assert.Empty(t, ids)

		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, s.Save(ctx, Snapshot("orders", id, "open")))
		}

		require.NoError(t, s.Save(ctx, Snapshot("payments", "z", "open")))

		ids, err = s.List(ctx, "orders")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("id required", func(t *testing.T) {
		s := newStore(t)

		require.ErrorIs(t, s.Save(t.Context(), Snapshot("orders", "", "open")), store.ErrIDRequired)
	})
}
