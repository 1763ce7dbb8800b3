package lockstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T, opts ...SQLiteOption) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStoreInMemory(opts...)
	if err != nil {
		t.Fatalf("NewSQLiteStoreInMemory() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteAcquireConflict(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice", Name: "Alice"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting, Message: "refactor"}}, "abc1"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	_, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "bob"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1")
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConflictError", err)
	}
	if ce.Conflicts[0].HolderID != "alice" {
		t.Errorf("conflict holder = %q, want alice", ce.Conflicts[0].HolderID)
	}

	// Two readers from different holders coexist.
	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "carol"},
		[]Entry{{FilePath: "src/db.ts", Mode: ModeReading}}, "abc1"); err != nil {
		t.Fatalf("reader acquire failed: %v", err)
	}
	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "dave"},
		[]Entry{{FilePath: "src/db.ts", Mode: ModeReading}}, "abc1"); err != nil {
		t.Errorf("second reader blocked: %v", err)
	}
}

func TestSQLiteAcquireAtomicity(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice"},
		[]Entry{{FilePath: "src/db.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Fatalf("setup acquire failed: %v", err)
	}

	_, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "bob"}, []Entry{
		{FilePath: "src/auth.ts", Mode: ModeWriting},
		{FilePath: "src/db.ts", Mode: ModeWriting},
	}, "abc1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}

	snap, err := s.Snapshot(ctx, testScope, []string{"src/auth.ts", "src/db.ts"})
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snap["src/auth.ts"]) != 0 {
		t.Errorf("src/auth.ts locked after rolled-back batch: %+v", snap["src/auth.ts"])
	}
	if len(snap["src/db.ts"]) != 1 || snap["src/db.ts"][0].HolderID != "alice" {
		t.Errorf("src/db.ts = %+v, want alice's record intact", snap["src/db.ts"])
	}
}

func TestSQLitePassiveExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestSQLiteStore(t, WithSQLiteClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	now = now.Add(DefaultTTL - time.Second)
	snap, _ := s.Snapshot(ctx, testScope, []string{"src/auth.ts"})
	if len(snap["src/auth.ts"]) != 1 {
		t.Fatal("record absent before expiry")
	}

	now = now.Add(time.Second)
	snap, _ = s.Snapshot(ctx, testScope, []string{"src/auth.ts"})
	if len(snap["src/auth.ts"]) != 0 {
		t.Fatal("record visible at expiry instant")
	}

	// Lazy eviction on read removed the row; an acquire now succeeds.
	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "bob"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Errorf("acquire after expiry failed: %v", err)
	}
}

func TestSQLiteExpiredRecordDoesNotBlockAcquire(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestSQLiteStore(t, WithSQLiteClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// No snapshot or sweep ran; the stale row is still in the table, but
	// the acquire path must treat it as absent.
	now = now.Add(DefaultTTL)
	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "bob"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Errorf("stale unswept record blocked acquire: %v", err)
	}
}

func TestSQLiteSweepExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestSQLiteStore(t, WithSQLiteClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice"}, []Entry{
		{FilePath: "src/auth.ts", Mode: ModeWriting},
		{FilePath: "src/db.ts", Mode: ModeReading},
	}, "abc1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	n, err := s.SweepExpired(ctx, now.Add(DefaultTTL))
	if err != nil {
		t.Fatalf("SweepExpired() error: %v", err)
	}
	if n != 2 {
		t.Errorf("swept %d, want 2", n)
	}
	n, _ = s.SweepExpired(ctx, now.Add(DefaultTTL))
	if n != 0 {
		t.Errorf("second sweep removed %d, want 0", n)
	}
}

func TestSQLiteReleaseIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	released, err := s.Release(ctx, testScope, []string{"src/auth.ts", "src/other.ts"}, "alice")
	if err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if len(released) != 1 || released[0] != "src/auth.ts" {
		t.Errorf("released = %v, want [src/auth.ts]", released)
	}

	released, err = s.Release(ctx, testScope, []string{"src/auth.ts"}, "alice")
	if err != nil || len(released) != 0 {
		t.Errorf("repeat release = (%v, %v), want no-op", released, err)
	}
}

func TestSQLiteRepoHeadPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	if _, err := s.AcquireOrRefresh(ctx, testScope, Holder{ID: "alice"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := s.SetRepoHead(ctx, testScope, "def2"); err != nil {
		t.Fatalf("SetRepoHead() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// State survives a process restart.
	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s2.Close()

	head, err := s2.RepoHead(ctx, testScope)
	if err != nil {
		t.Fatalf("RepoHead() error: %v", err)
	}
	if head != "def2" {
		t.Errorf("head = %q, want def2", head)
	}
	snap, err := s2.Snapshot(ctx, testScope, []string{"src/auth.ts"})
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(snap["src/auth.ts"]) != 1 || snap["src/auth.ts"][0].Mode != ModeWriting {
		t.Errorf("records after reopen = %+v, want alice's WRITING lock", snap["src/auth.ts"])
	}
}

func TestSQLiteScopeLocks(t *testing.T) {
	clock := time.Now()
	s := newTestSQLiteStore(t, WithSQLiteTTL(30*time.Second), WithSQLiteClock(func() time.Time { return clock }))

	if _, err := s.AcquireOrRefresh(context.Background(), testScope, Holder{ID: "bob"},
		[]Entry{{FilePath: "src/db.ts", Mode: ModeReading}}, "abc1"); err != nil {
		t.Fatalf("AcquireOrRefresh() error: %v", err)
	}
	if _, err := s.AcquireOrRefresh(context.Background(), testScope, Holder{ID: "alice"},
		[]Entry{{FilePath: "src/auth.ts", Mode: ModeWriting}}, "abc1"); err != nil {
		t.Fatalf("AcquireOrRefresh() error: %v", err)
	}

	recs, err := s.ScopeLocks(context.Background(), testScope)
	if err != nil {
		t.Fatalf("ScopeLocks() error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].FilePath != "src/auth.ts" || recs[1].FilePath != "src/db.ts" {
		t.Errorf("order = %s, %s; want src/auth.ts, src/db.ts", recs[0].FilePath, recs[1].FilePath)
	}

	clock = clock.Add(31 * time.Second)
	recs, err = s.ScopeLocks(context.Background(), testScope)
	if err != nil {
		t.Fatalf("ScopeLocks() error: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len(recs) after expiry = %d, want 0", len(recs))
	}
}
