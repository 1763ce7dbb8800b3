package lockstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/relay-dev/relay/internal/event"
	"github.com/relay-dev/relay/internal/scope"
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithTTL overrides the default record lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithClock injects the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithBus attaches an event bus; the store publishes lock lifecycle events
// to it after each mutation.
func WithBus(bus *event.Bus) Option {
	return func(s *MemoryStore) {
		s.bus = bus
	}
}

// MemoryStore is an in-process Store. A single mutex serializes every
// mutating call, which makes the multi-key acquire trivially linearizable.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	bus    *event.Bus
	scopes map[string]*scopeState
}

// scopeState holds all records and the repo head for one scope.
// Records are keyed by file path, then holder id, so concurrent READING
// records from different holders coexist.
type scopeState struct {
	locks    map[string]map[string]LockRecord
	repoHead string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		ttl:    DefaultTTL,
		now:    time.Now,
		scopes: make(map[string]*scopeState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) scopeLocked(key string) *scopeState {
	st, ok := s.scopes[key]
	if !ok {
		st = &scopeState{locks: make(map[string]map[string]LockRecord)}
		s.scopes[key] = st
	}
	return st
}

// evictExpiredLocked removes every dead record in the scope and returns the
// expiry events to publish once the lock is dropped.
func (s *MemoryStore) evictExpiredLocked(key string, st *scopeState, now time.Time) []event.Event {
	var evs []event.Event
	for fp, holders := range st.locks {
		for hid, rec := range holders {
			if rec.Expired(now) {
				delete(holders, hid)
				evs = append(evs, event.NewLockExpiredEvent(key, fp, hid))
			}
		}
		if len(holders) == 0 {
			delete(st.locks, fp)
		}
	}
	return evs
}

// AcquireOrRefresh implements Store. The conflict check runs over every
// entry before any record is written, so a blocked request changes nothing.
func (s *MemoryStore) AcquireOrRefresh(ctx context.Context, sc scope.Scope, holder Holder, entries []Entry, callerRevision string) ([]LockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.Mode.Valid() {
			return nil, fmt.Errorf("lockstore: invalid mode %q for %s", e.Mode, e.FilePath)
		}
	}

	key := sc.Key()
	now := s.now()

	s.mu.Lock()
	st := s.scopeLocked(key)
	evs := s.evictExpiredLocked(key, st, now)

	// Check all, then commit all.
	var conflicts []Conflict
	seen := make(map[string]bool)
	for _, e := range entries {
		for hid, rec := range st.locks[e.FilePath] {
			if hid == holder.ID {
				continue
			}
			if e.Mode == ModeWriting || rec.Mode == ModeWriting {
				if !seen[e.FilePath] {
					seen[e.FilePath] = true
					conflicts = append(conflicts, Conflict{FilePath: e.FilePath, HolderID: hid})
				}
			}
		}
	}
	if len(conflicts) > 0 {
		s.mu.Unlock()
		s.publish(evs)
		return nil, &ConflictError{Conflicts: conflicts}
	}

	accepted := make([]LockRecord, 0, len(entries))
	for _, e := range entries {
		holders := st.locks[e.FilePath]
		if holders == nil {
			holders = make(map[string]LockRecord)
			st.locks[e.FilePath] = holders
		}
		_, refresh := holders[holder.ID]
		rec := LockRecord{
			FilePath:      e.FilePath,
			HolderID:      holder.ID,
			HolderName:    holder.Name,
			Mode:          e.Mode,
			KnownRevision: callerRevision,
			Message:       e.Message,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.ttl),
		}
		holders[holder.ID] = rec
		accepted = append(accepted, rec)
		if refresh {
			evs = append(evs, event.NewLockRefreshedEvent(key, e.FilePath, holder.ID, string(e.Mode)))
		} else {
			evs = append(evs, event.NewLockAcquiredEvent(key, e.FilePath, holder.ID, string(e.Mode)))
		}
	}
	s.mu.Unlock()

	s.publish(evs)
	return accepted, nil
}

// Release implements Store. Missing or foreign records are skipped silently.
func (s *MemoryStore) Release(ctx context.Context, sc scope.Scope, filePaths []string, holderID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := sc.Key()

	s.mu.Lock()
	st := s.scopeLocked(key)
	evs := s.evictExpiredLocked(key, st, s.now())

	var released []string
	for _, fp := range filePaths {
		holders := st.locks[fp]
		if _, ok := holders[holderID]; !ok {
			continue
		}
		delete(holders, holderID)
		if len(holders) == 0 {
			delete(st.locks, fp)
		}
		released = append(released, fp)
		evs = append(evs, event.NewLockReleasedEvent(key, fp, holderID))
	}
	s.mu.Unlock()

	s.publish(evs)
	return released, nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(ctx context.Context, sc scope.Scope, filePaths []string) (map[string][]LockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := sc.Key()

	s.mu.Lock()
	st := s.scopeLocked(key)
	evs := s.evictExpiredLocked(key, st, s.now())

	out := make(map[string][]LockRecord)
	for _, fp := range filePaths {
		for _, rec := range st.locks[fp] {
			out[fp] = append(out[fp], rec)
		}
	}
	s.mu.Unlock()

	s.publish(evs)
	return out, nil
}

// ScopeLocks implements Store.
func (s *MemoryStore) ScopeLocks(ctx context.Context, sc scope.Scope) ([]LockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := sc.Key()

	s.mu.Lock()
	st := s.scopeLocked(key)
	evs := s.evictExpiredLocked(key, st, s.now())

	var out []LockRecord
	for _, holders := range st.locks {
		for _, rec := range holders {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].HolderID < out[j].HolderID
	})

	s.publish(evs)
	return out, nil
}

// SweepExpired implements Store.
func (s *MemoryStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	var evs []event.Event
	for key, st := range s.scopes {
		evs = append(evs, s.evictExpiredLocked(key, st, now)...)
	}
	s.mu.Unlock()

	s.publish(evs)
	return len(evs), nil
}

// RepoHead implements Store.
func (s *MemoryStore) RepoHead(ctx context.Context, sc scope.Scope) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeLocked(sc.Key()).repoHead, nil
}

// SetRepoHead implements Store.
func (s *MemoryStore) SetRepoHead(ctx context.Context, sc scope.Scope, head string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := sc.Key()

	s.mu.Lock()
	st := s.scopeLocked(key)
	old := st.repoHead
	st.repoHead = head
	s.mu.Unlock()

	if s.bus != nil && old != head {
		s.bus.Publish(event.NewHeadAdvancedEvent(key, old, head))
	}
	return nil
}

// publish sends collected events once the store lock is released, so
// handlers may safely call back into the store.
func (s *MemoryStore) publish(evs []event.Event) {
	if s.bus == nil {
		return
	}
	for _, ev := range evs {
		s.bus.Publish(ev)
	}
}
