// Package store implements the event-sourced state store (C4): an
// append-only event log, on-demand snapshots, reducer-driven materialised
// state, and branch-from-snapshot forking.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vei-sim/vei/telemetry"
)

type (
	// Event is a single immutable event-log record. Once appended, an Event
	// is never mutated; indices are contiguous starting at 0.
	Event struct {
		Index   int            `json:"index"`
		UUID    string         `json:"event_id"`
		Kind    string         `json:"kind"`
		Payload map[string]any `json:"payload"`
		ClockMS int64          `json:"clock_ms"`
	}

	// Snapshot is a deep copy of materialised state at a given event index.
	Snapshot struct {
		Index   int            `json:"index"`
		ClockMS int64          `json:"clock_ms"`
		Data    map[string]any `json:"data"`
	}

	// Reducer folds an event into the materialised state bag. Reducers never
	// return errors: a reducer that cannot apply an event should leave state
	// unchanged, since a broken reducer must not abort replay.
	Reducer func(state map[string]any, e *Event)

	// Backend persists events and snapshots. The default is a JSONL-on-disk
	// backend (see NewFileBackend); an alternative embedded-SQL backend is
	// provided in store/sqlite. All Backend methods are best-effort: a
	// Backend error is logged by Store and never propagated to callers of
	// Append, matching spec.md §4.4/§5 ("storage writes are best-effort; a
	// write failure must not abort an append").
	Backend interface {
		// LoadEvents returns previously persisted events in index order. A
		// corrupt or truncated log should be tolerated by returning the
		// events that can still be trusted (possibly none) and a nil error,
		// so that Store can continue from an empty or partial log.
		LoadEvents() ([]*Event, error)
		AppendEvent(e *Event) error
		WriteSnapshot(s *Snapshot) error
		Close() error
	}

	// Store is the event-sourced state store for one branch of a simulation.
	Store struct {
		mu sync.Mutex

		branch  string
		backend Backend
		logger  telemetry.Logger

		events    []*Event
		state     map[string]any
		reducers  map[string][]Reducer
		snapshots map[int]*Snapshot
	}
)

// New constructs a Store for branch, loading any previously persisted
// events from backend. A nil backend disables persistence entirely (pure
// in-memory operation); this is also what happens transparently if backend
// writes start failing, since failures are swallowed rather than surfaced.
func New(branch string, backend Backend, logger telemetry.Logger) *Store {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	s := &Store{
		branch:    branch,
		backend:   backend,
		logger:    logger,
		state:     make(map[string]any),
		reducers:  make(map[string][]Reducer),
		snapshots: make(map[int]*Snapshot),
	}
	s.load()
	return s
}

func (s *Store) load() {
	if s.backend == nil {
		return
	}
	events, err := s.backend.LoadEvents()
	if err != nil {
		s.logger.Warn(nil, "state store: resetting to empty log after load error", "branch", s.branch, "err", err)
		return
	}
	s.events = events
	s.state = make(map[string]any)
	for _, e := range s.events {
		s.apply(e, nil)
	}
}

// Head returns the index of the last appended event, or -1 if the log is
// empty. Invariant: Head() == len(Events())-1.
func (s *Store) Head() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) - 1
}

// Events returns a defensive copy of the event log.
func (s *Store) Events() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}

// State returns a deep copy of the current materialised state.
func (s *Store) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopyMap(s.state)
}

// Append records a new event, assigns it the next contiguous index, applies
// any reducer registered for kind plus the optional per-call reducer, and
// best-effort persists it. clockMS is the bus clock at the time of the
// call.
func (s *Store) Append(kind string, payload map[string]any, clockMS int64, reducer Reducer) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Event{
		Index:   len(s.events),
		UUID:    uuid.NewString(),
		Kind:    kind,
		Payload: payload,
		ClockMS: clockMS,
	}
	s.events = append(s.events, e)
	s.apply(e, reducer)

	if s.backend != nil {
		if err := s.backend.AppendEvent(e); err != nil {
			s.logger.Warn(nil, "state store: best-effort event persistence failed", "branch", s.branch, "index", e.Index, "err", err)
		}
	}
	return e
}

// apply runs the registered kind reducers followed by the optional per-call
// reducer against the current state, holding the lock already.
func (s *Store) apply(e *Event, extra Reducer) {
	for _, r := range s.reducers[e.Kind] {
		r(s.state, e)
	}
	if extra != nil {
		extra(s.state, e)
	}
}

// RegisterReducer registers fn for kind and immediately replays the entire
// historical event log through fn so that newly registered reducers apply
// retroactively, per spec.md §4.4.
func (s *Store) RegisterReducer(kind string, fn Reducer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reducers[kind] = append(s.reducers[kind], fn)
	s.rebuildLocked(nil)
}

// RebuildState replays events from an empty base through all registered
// reducers, optionally stopping after the event at index upto (inclusive),
// and returns the resulting state. It does not mutate the store's live
// state; compare against State() to verify a rebuild matches live state.
func (s *Store) RebuildState(upto *int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := make(map[string]any)
	for _, e := range s.events {
		if upto != nil && e.Index > *upto {
			break
		}
		for _, r := range s.reducers[e.Kind] {
			r(state, e)
		}
	}
	return state
}

// rebuildLocked recomputes s.state in place, holding the lock already.
func (s *Store) rebuildLocked(upto *int) {
	state := make(map[string]any)
	for _, e := range s.events {
		if upto != nil && e.Index > *upto {
			break
		}
		for _, r := range s.reducers[e.Kind] {
			r(state, e)
		}
	}
	s.state = state
}

// TakeSnapshot deep-copies the current state and best-effort persists it.
func (s *Store) TakeSnapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{
		Index:   len(s.events) - 1,
		Data:    deepCopyMap(s.state),
	}
	if len(s.events) > 0 {
		snap.ClockMS = s.events[len(s.events)-1].ClockMS
	}
	s.snapshots[snap.Index] = snap
	if s.backend != nil {
		if err := s.backend.WriteSnapshot(snap); err != nil {
			s.logger.Warn(nil, "state store: best-effort snapshot persistence failed", "branch", s.branch, "index", snap.Index, "err", err)
		}
	}
	return snap
}

// Snapshot returns the snapshot recorded at index, if any.
func (s *Store) Snapshot(index int) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[index]
	return snap, ok
}

// BranchFrom creates a new Store named name, seeded with events at or
// before snapshot.Index and the snapshot's state, and a branch-local
// backend (branchBackend may be nil to keep the branch purely in-memory).
// Appending to the returned branch never mutates this store's events,
// state, or snapshots.
func (s *Store) BranchFrom(snapshot *Snapshot, name string, branchBackend Backend) (*Store, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("branch_from: snapshot is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	child := &Store{
		branch:    name,
		backend:   branchBackend,
		logger:    s.logger,
		state:     deepCopyMap(snapshot.Data),
		reducers:  make(map[string][]Reducer, len(s.reducers)),
		snapshots: make(map[int]*Snapshot),
	}
	for kind, fns := range s.reducers {
		child.reducers[kind] = append([]Reducer(nil), fns...)
	}
	for _, e := range s.events {
		if e.Index > snapshot.Index {
			break
		}
		ev := *e
		child.events = append(child.events, &ev)
	}
	childSnap := *snapshot
	childSnap.Data = deepCopyMap(snapshot.Data)
	child.snapshots[snapshot.Index] = &childSnap
	return child, nil
}

// Close releases the store's backend resources, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return make(map[string]any)
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return val
	}
}
