// Package store persists FSM snapshots so machines can be resumed across
// processes. Snapshots are grouped by engine name and keyed by FSM id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Predefined error types.
var (
	// ErrNotFound indicates that no snapshot exists for the engine and id.
	ErrNotFound = errors.New("snapshot not found")
	// ErrIDRequired indicates a snapshot without an id.
	ErrIDRequired = errors.New("snapshot id is required")
	// ErrUnknownKind indicates an unsupported store kind in configuration.
	ErrUnknownKind = errors.New("unknown store kind")
)

// Store persists snapshots.
type Store interface {
	// Save creates or replaces the snapshot stored under its engine and id.
	Save(ctx context.Context, snap *fsm.Snapshot) error
	// Load returns the snapshot, or ErrNotFound.
	Load(ctx context.Context, engine, id string) (*fsm.Snapshot, error)
	// Delete removes the snapshot, or returns ErrNotFound.
	Delete(ctx context.Context, engine, id string) error
	// List returns the ids stored for the engine in sorted order.
	List(ctx context.Context, engine string) ([]string, error)
	// Close releases the resources held by the store.
	Close() error
}

// Encode serializes a snapshot for storage.
func Encode(snap *fsm.Snapshot) ([]byte, error) {
	if snap.ID == "" {
		return nil, ErrIDRequired
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot %s: %w", snap.ID, err)
	}

	return data, nil
}

// Decode deserializes a stored snapshot.
func Decode(data []byte) (*fsm.Snapshot, error) {
	var snap fsm.Snapshot

	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	return &snap, nil
}

// NotFound wraps ErrNotFound with the engine and id.
func NotFound(engine, id string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, engine, id)
}
