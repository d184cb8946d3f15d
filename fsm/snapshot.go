package fsm

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the persisted form of an FSM: its current state by name and
// its encoded data. Fingerprint identifies the engine shape the snapshot was
// taken from.
type Snapshot struct {
	ID          string          `json:"id"`
	Engine      string          `json:"engine"`
	Fingerprint uint64          `json:"fingerprint"`
	State       string          `json:"state"`
	Data        json.RawMessage `json:"data,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Encoder serializes FSM data for a snapshot.
type Encoder[C any] func(data C) ([]byte, error)

// Decoder deserializes FSM data from a snapshot.
type Decoder[C any] func(raw []byte) (C, error)

// JSONEncoder encodes data with encoding/json.
func JSONEncoder[C any]() Encoder[C] {
	return func(data C) ([]byte, error) {
		return json.Marshal(data)
	}
}

// JSONDecoder decodes data with encoding/json.
func JSONDecoder[C any]() Decoder[C] {
	return func(raw []byte) (C, error) {
		var data C

		if len(raw) == 0 {
			return data, nil
		}

		err := json.Unmarshal(raw, &data)

		return data, err
	}
}

// Snapshot captures the FSM. A nil encoder leaves Data empty.
func (m *FSM[C]) Snapshot(encode Encoder[C]) (*Snapshot, error) {
	snap := &Snapshot{
		ID:          m.id,
		Engine:      m.engine.Name(),
		Fingerprint: m.engine.Fingerprint(),
		State:       m.state.Name(),
		UpdatedAt:   time.Now().UTC(),
	}

	if encode != nil {
		raw, err := encode(m.data)
		if err != nil {
			return nil, fmt.Errorf("encoding data of %s: %w", m.id, err)
		}

		snap.Data = raw
	}

	return snap, nil
}

// Restore recreates an FSM from a snapshot on the given engine. The state is
// resolved by name; if several states share a name the first registered one
// is used. A snapshot whose fingerprint does not match the engine is
// rejected. A nil decoder leaves the data at its zero value.
func Restore[C any](engine *StateEngine[C], snap *Snapshot, decode Decoder[C], opts ...MachineOption) (*FSM[C], error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	if err := engine.Done(); err != nil {
		return nil, err
	}

	if snap.Fingerprint != 0 && snap.Fingerprint != engine.Fingerprint() {
		return nil, fmt.Errorf("restoring %s on engine %s: %w", snap.ID, engine.Name(), ErrSnapshotMismatch)
	}

	state, ok := engine.StateByName(snap.State)
	if !ok {
		return nil, fmt.Errorf("restoring %s: %w: %q", snap.ID, ErrUnknownState, snap.State)
	}

	var data C

	if decode != nil {
		var err error

		data, err = decode(snap.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding data of %s: %w", snap.ID, err)
		}
	}

	return New(engine, state, data, append([]MachineOption{WithID(snap.ID)}, opts...)...)
}
