// Package session keeps many FSMs that share one engine, addressed by id.
// Each session is fed by one goroutine at a time and persisted to a
// store.Store after every successful transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/store"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrPersist        = errors.New("persisting session")
	ErrNilStore       = errors.New("session manager has no store")
)

// Info is a point-in-time view of a session.
type Info[C any] struct {
	ID    string
	State *fsm.State
	Data  C
}

// Stats counts manager activity since creation.
type Stats struct {
	Live    int
	Opened  int64
	Resumed int64
	Fed     int64
	Failed  int64
	Closed  int64
}

type entry[C any] struct {
	mu      sync.Mutex
	machine *fsm.FSM[C]

	// closed is set under mu by Close. A feed waiting on mu must not run
	// or persist afterwards.
	closed bool
}

type options[C any] struct {
	store  store.Store
	encode fsm.Encoder[C]
	decode fsm.Decoder[C]
	newID  func() string
}

// Option configures a Manager.
type Option[C any] func(*options[C])

// WithStore persists sessions to s.
func WithStore[C any](s store.Store) Option[C] {
	return func(o *options[C]) {
		o.store = s
	}
}

// WithCodec sets how session data is written into snapshots. The default
// is JSON.
func WithCodec[C any](encode fsm.Encoder[C], decode fsm.Decoder[C]) Option[C] {
	return func(o *options[C]) {
		o.encode = encode
		o.decode = decode
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator[C any](gen func() string) Option[C] {
	return func(o *options[C]) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// Manager owns a set of sessions.
type Manager[C any] struct {
	engine  *fsm.StateEngine[C]
	initial *fsm.State
	opts    options[C]

	mu       sync.RWMutex
	sessions map[string]*entry[C]

	opened  *atomic.Int64
	resumed *atomic.Int64
	fed     *atomic.Int64
	failed  *atomic.Int64
	closed  *atomic.Int64
}

// NewManager creates a manager whose sessions start in initial. It fails if
// the engine has configuration errors.
func NewManager[C any](engine *fsm.StateEngine[C], initial *fsm.State, opts ...Option[C]) (*Manager[C], error) {
	if engine == nil {
		return nil, fsm.ErrNilEngine
	}

	if initial == nil {
		return nil, fmt.Errorf("initial state: %w", fsm.ErrNilState)
	}

	if err := engine.Done(); err != nil {
		return nil, err
	}

	o := options[C]{
		encode: fsm.JSONEncoder[C](),
		decode: fsm.JSONDecoder[C](),
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[C]{
		engine:   engine,
		initial:  initial,
		opts:     o,
		sessions: make(map[string]*entry[C]),
		opened:   atomic.NewInt64(0),
		resumed:  atomic.NewInt64(0),
		fed:      atomic.NewInt64(0),
		failed:   atomic.NewInt64(0),
		closed:   atomic.NewInt64(0),
	}, nil
}

// Open starts a new session holding data and returns its id.
func (m *Manager[C]) Open(ctx context.Context, data C) (string, error) {
	id := m.opts.newID()

	machine, err := fsm.New(m.engine, m.initial, data, fsm.WithID(id))
	if err != nil {
		return "", err
	}

	if err := m.persist(ctx, machine); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[id] = &entry[C]{machine: machine}
	m.mu.Unlock()

	m.opened.Inc()

	logger.Get(ctx).Debug("Session opened",
		"engine", m.engine.Name(),
		"session", id,
		"state", m.initial.Name())

	return id, nil
}

// Feed runs one input against the session and returns the resulting state.
// Feeds to the same session are serialized. The session is persisted only
// when the transition succeeds.
func (m *Manager[C]) Feed(ctx context.Context, id string, in *fsm.Input) (*fsm.State, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	m.fed.Inc()

	if err := e.machine.DoIt(ctx, in); err != nil {
		m.failed.Inc()

		return e.machine.State(), err
	}

	if err := m.persist(ctx, e.machine); err != nil {
		return e.machine.State(), err
	}

	return e.machine.State(), nil
}

// Get returns the current state and data of a live session.
func (m *Manager[C]) Get(id string) (Info[C], error) {
	e, err := m.lookup(id)
	if err != nil {
		return Info[C]{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return Info[C]{
		ID:    id,
		State: e.machine.State(),
		Data:  e.machine.Data(),
	}, nil
}

// Close forgets the session and removes it from the store. It waits for a
// feed in progress on the session to finish; that feed is not persisted.
func (m *Manager[C]) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	e, live := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if live {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.closed = true
	}

	if m.opts.store != nil {
		err := m.opts.store.Delete(ctx, m.engine.Name(), id)
		if err == nil {
			live = true
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	if !live {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	m.closed.Inc()

	logger.Get(ctx).Debug("Session closed", "engine", m.engine.Name(), "session", id)

	return nil
}

// Resume loads a session from the store. A session that is already live is
// returned as is.
func (m *Manager[C]) Resume(ctx context.Context, id string) (*fsm.State, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		e.mu.Lock()
		defer e.mu.Unlock()

		return e.machine.State(), nil
	}

	if m.opts.store == nil {
		return nil, ErrNilStore
	}

	snap, err := m.opts.store.Load(ctx, m.engine.Name(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Join(fmt.Errorf("%w: %s", ErrUnknownSession, id), err)
		}

		return nil, err
	}

	machine, err := fsm.Restore(m.engine, snap, m.opts.decode)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()

		// Lost a race with another Resume.
		existing.mu.Lock()
		defer existing.mu.Unlock()

		return existing.machine.State(), nil
	}

	m.sessions[id] = &entry[C]{machine: machine}
	m.mu.Unlock()

	m.resumed.Inc()

	logger.Get(ctx).Debug("Session resumed",
		"engine", m.engine.Name(),
		"session", id,
		"state", machine.State().Name())

	return machine.State(), nil
}

// IDs returns the live session ids in sorted order.
func (m *Manager[C]) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.sessions))
}

// Stats returns the activity counters.
func (m *Manager[C]) Stats() Stats {
	m.mu.RLock()
	live := len(m.sessions)
	m.mu.RUnlock()

	return Stats{
		Live:    live,
		Opened:  m.opened.Load(),
		Resumed: m.resumed.Load(),
		Fed:     m.fed.Load(),
		Failed:  m.failed.Load(),
		Closed:  m.closed.Load(),
	}
}

func (m *Manager[C]) lookup(id string) (*entry[C], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	return e, nil
}

func (m *Manager[C]) persist(ctx context.Context, machine *fsm.FSM[C]) error {
	if m.opts.store == nil {
		return nil
	}

	snap, err := machine.Snapshot(m.opts.encode)
	if err != nil {
		return errors.Join(ErrPersist, err)
	}

	if err := m.opts.store.Save(ctx, snap); err != nil {
		return errors.Join(ErrPersist, err)
	}

	return nil
}
