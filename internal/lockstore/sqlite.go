package lockstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relay-dev/relay/internal/event"
	"github.com/relay-dev/relay/internal/scope"
)

//go:embed schema.sql
var schema string

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteTTL overrides the default record lifetime.
func WithSQLiteTTL(ttl time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		s.ttl = ttl
	}
}

// WithSQLiteClock injects the time source, for expiry tests.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// WithSQLiteBus attaches an event bus for lock lifecycle events.
func WithSQLiteBus(bus *event.Bus) SQLiteOption {
	return func(s *SQLiteStore) {
		s.bus = bus
	}
}

// SQLiteStore is a durable Store. Connections are capped at one so every
// transaction serializes, which keeps the check-all-then-commit-all acquire
// linearizable without advisory database locks.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	bus *event.Bus
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("lockstore: db path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newSQLiteStore(db, opts...)
}

// NewSQLiteStoreInMemory opens a throwaway in-memory database, for tests.
func NewSQLiteStoreInMemory(opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newSQLiteStore(db, opts...)
}

func newSQLiteStore(db *sql.DB, opts ...SQLiteOption) (*SQLiteStore, error) {
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s := &SQLiteStore{
		db:  db,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AcquireOrRefresh implements Store.
func (s *SQLiteStore) AcquireOrRefresh(ctx context.Context, sc scope.Scope, holder Holder, entries []Entry, callerRevision string) ([]LockRecord, error) {
	for _, e := range entries {
		if !e.Mode.Valid() {
			return nil, fmt.Errorf("lockstore: invalid mode %q for %s", e.Mode, e.FilePath)
		}
	}

	key := sc.Key()
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	// Check all: any live conflicting record from a different holder
	// aborts the whole batch before anything is written.
	var conflicts []Conflict
	var evs []event.Event
	seen := make(map[string]bool)
	for _, e := range entries {
		rows, err := tx.QueryContext(ctx,
			`SELECT holder_id, mode, expires_at FROM locks WHERE scope_key = ? AND file_path = ?`,
			key, e.FilePath)
		if err != nil {
			return nil, fmt.Errorf("query locks: %w", err)
		}
		conflict, cevs, err := scanConflicts(rows, e, holder.ID, key, now)
		if err != nil {
			return nil, err
		}
		evs = append(evs, cevs...)
		if conflict != nil && !seen[e.FilePath] {
			seen[e.FilePath] = true
			conflicts = append(conflicts, *conflict)
		}
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	// Commit all.
	accepted := make([]LockRecord, 0, len(entries))
	for _, e := range entries {
		var existing int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM locks WHERE scope_key = ? AND file_path = ? AND holder_id = ?`,
			key, e.FilePath, holder.ID).Scan(&existing); err != nil {
			return nil, fmt.Errorf("count existing: %w", err)
		}

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
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO locks (scope_key, file_path, holder_id, holder_name, mode, known_revision, message, created_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (scope_key, file_path, holder_id) DO UPDATE SET
			   holder_name = excluded.holder_name,
			   mode = excluded.mode,
			   known_revision = excluded.known_revision,
			   message = excluded.message,
			   created_at = excluded.created_at,
			   expires_at = excluded.expires_at`,
			key, rec.FilePath, rec.HolderID, rec.HolderName, string(rec.Mode),
			rec.KnownRevision, rec.Message, rec.CreatedAt.UnixNano(), rec.ExpiresAt.UnixNano()); err != nil {
			return nil, fmt.Errorf("upsert lock: %w", err)
		}
		accepted = append(accepted, rec)
		if existing > 0 {
			evs = append(evs, event.NewLockRefreshedEvent(key, e.FilePath, holder.ID, string(e.Mode)))
		} else {
			evs = append(evs, event.NewLockAcquiredEvent(key, e.FilePath, holder.ID, string(e.Mode)))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.publish(evs)
	return accepted, nil
}

// scanConflicts walks the records on one file, noting the first live record
// that conflicts with the request and an expiry event for each dead row.
// Expired rows are not deleted here; Snapshot and SweepExpired handle that.
func scanConflicts(rows *sql.Rows, e Entry, requesterID, scopeKey string, now time.Time) (*Conflict, []event.Event, error) {
	defer rows.Close()

	var conflict *Conflict
	var evs []event.Event
	for rows.Next() {
		var holderID, mode string
		var expiresAt int64
		if err := rows.Scan(&holderID, &mode, &expiresAt); err != nil {
			return nil, nil, fmt.Errorf("scan lock: %w", err)
		}
		if !now.Before(time.Unix(0, expiresAt)) {
			evs = append(evs, event.NewLockExpiredEvent(scopeKey, e.FilePath, holderID))
			continue
		}
		if holderID == requesterID {
			continue
		}
		if e.Mode == ModeWriting || Mode(mode) == ModeWriting {
			if conflict == nil {
				conflict = &Conflict{FilePath: e.FilePath, HolderID: holderID}
			}
		}
	}
	return conflict, nil, rows.Err()
}

// Release implements Store.
func (s *SQLiteStore) Release(ctx context.Context, sc scope.Scope, filePaths []string, holderID string) ([]string, error) {
	key := sc.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var released []string
	var evs []event.Event
	for _, fp := range filePaths {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM locks WHERE scope_key = ? AND file_path = ? AND holder_id = ?`,
			key, fp, holderID)
		if err != nil {
			return nil, fmt.Errorf("delete lock: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			released = append(released, fp)
			evs = append(evs, event.NewLockReleasedEvent(key, fp, holderID))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.publish(evs)
	return released, nil
}

// Snapshot implements Store. Expired rows for the queried files are deleted
// on the way out, so readers never observe a dead record.
func (s *SQLiteStore) Snapshot(ctx context.Context, sc scope.Scope, filePaths []string) (map[string][]LockRecord, error) {
	key := sc.Key()
	now := s.now()

	out := make(map[string][]LockRecord)
	var evs []event.Event
	for _, fp := range filePaths {
		rows, err := s.db.QueryContext(ctx,
			`SELECT file_path, holder_id, holder_name, mode, known_revision, message, created_at, expires_at
			 FROM locks WHERE scope_key = ? AND file_path = ?`,
			key, fp)
		if err != nil {
			return nil, fmt.Errorf("query locks: %w", err)
		}
		recs, dead, err := scanRecords(rows)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec.Expired(now) {
				dead = append(dead, rec)
				continue
			}
			out[fp] = append(out[fp], rec)
		}
		for _, rec := range dead {
			if _, err := s.db.ExecContext(ctx,
				`DELETE FROM locks WHERE scope_key = ? AND file_path = ? AND holder_id = ? AND expires_at = ?`,
				key, rec.FilePath, rec.HolderID, rec.ExpiresAt.UnixNano()); err != nil {
				return nil, fmt.Errorf("evict expired: %w", err)
			}
			evs = append(evs, event.NewLockExpiredEvent(key, rec.FilePath, rec.HolderID))
		}
	}

	s.publish(evs)
	return out, nil
}

func scanRecords(rows *sql.Rows) ([]LockRecord, []LockRecord, error) {
	defer rows.Close()

	var recs []LockRecord
	for rows.Next() {
		var rec LockRecord
		var mode string
		var createdAt, expiresAt int64
		if err := rows.Scan(&rec.FilePath, &rec.HolderID, &rec.HolderName, &mode,
			&rec.KnownRevision, &rec.Message, &createdAt, &expiresAt); err != nil {
			return nil, nil, fmt.Errorf("scan lock: %w", err)
		}
		rec.Mode = Mode(mode)
		rec.CreatedAt = time.Unix(0, createdAt)
		rec.ExpiresAt = time.Unix(0, expiresAt)
		recs = append(recs, rec)
	}
	return recs, nil, rows.Err()
}

// ScopeLocks implements Store.
func (s *SQLiteStore) ScopeLocks(ctx context.Context, sc scope.Scope) ([]LockRecord, error) {
	key := sc.Key()
	now := s.now()

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, holder_id, holder_name, mode, known_revision, message, created_at, expires_at
		 FROM locks WHERE scope_key = ?
		 ORDER BY file_path, holder_id`,
		key)
	if err != nil {
		return nil, fmt.Errorf("query locks: %w", err)
	}
	recs, _, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	out := recs[:0]
	for _, rec := range recs {
		if !rec.Expired(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SweepExpired implements Store.
func (s *SQLiteStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope_key, file_path, holder_id FROM locks WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("query expired: %w", err)
	}
	type dead struct{ scopeKey, filePath, holderID string }
	var victims []dead
	for rows.Next() {
		var d dead
		if err := rows.Scan(&d.scopeKey, &d.filePath, &d.holderID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired: %w", err)
		}
		victims = append(victims, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE expires_at <= ?`, now.UnixNano()); err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}

	if s.bus != nil {
		for _, d := range victims {
			s.bus.Publish(event.NewLockExpiredEvent(d.scopeKey, d.filePath, d.holderID))
		}
	}
	return len(victims), nil
}

// RepoHead implements Store.
func (s *SQLiteStore) RepoHead(ctx context.Context, sc scope.Scope) (string, error) {
	var head string
	err := s.db.QueryRowContext(ctx,
		`SELECT head FROM repo_heads WHERE scope_key = ?`, sc.Key()).Scan(&head)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query head: %w", err)
	}
	return head, nil
}

// SetRepoHead implements Store.
func (s *SQLiteStore) SetRepoHead(ctx context.Context, sc scope.Scope, head string) error {
	key := sc.Key()
	old, err := s.RepoHead(ctx, sc)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO repo_heads (scope_key, head) VALUES (?, ?)
		 ON CONFLICT (scope_key) DO UPDATE SET head = excluded.head`,
		key, head); err != nil {
		return fmt.Errorf("upsert head: %w", err)
	}
	if s.bus != nil && old != head {
		s.bus.Publish(event.NewHeadAdvancedEvent(key, old, head))
	}
	return nil
}

func (s *SQLiteStore) publish(evs []event.Event) {
	if s.bus == nil {
		return
	}
	for _, ev := range evs {
		s.bus.Publish(ev)
	}
}
