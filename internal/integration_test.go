// Package internal contains integration tests that verify the packages work
// together: the engine running against the durable store, lock lifecycle
// events reaching subscribers, and the full two-agent coordination cycle.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/relay-dev/relay/internal/depgraph"
	"github.com/relay-dev/relay/internal/directive"
	"github.com/relay-dev/relay/internal/engine"
	"github.com/relay-dev/relay/internal/event"
	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/scope"
)

var testScope = scope.New("git@github.com:acme/api.git", "main")

func newIntegrationEngine(t *testing.T, bus *event.Bus) *engine.Engine {
	t.Helper()

	opts := []lockstore.SQLiteOption{}
	if bus != nil {
		opts = append(opts, lockstore.WithSQLiteBus(bus))
	}
	store, err := lockstore.NewSQLiteStoreInMemory(opts...)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SetRepoHead(context.Background(), testScope, "rev-1"); err != nil {
		t.Fatalf("seeding head: %v", err)
	}

	graph := depgraph.New([]depgraph.Edge{
		{Source: "src/api.ts", Target: "src/auth.ts"},
		{Source: "src/auth.ts", Target: "src/db.ts"},
	})
	return engine.New(store, graph)
}

// TestTwoAgentCoordinationCycle walks the full protocol: agent A locks and
// edits, agent B is told to wait, A pushes and releases, B pulls and proceeds.
func TestTwoAgentCoordinationCycle(t *testing.T) {
	e := newIntegrationEngine(t, nil)
	ctx := context.Background()

	// A checks, then takes a write lock.
	check := e.CheckStatus(ctx, engine.CheckStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		CallerRevision: "rev-1", HolderID: "agent-a",
	})
	if check.Directive.Action != directive.ActionProceed {
		t.Fatalf("A initial check = %s, want PROCEED", check.Directive.Action)
	}

	post := e.PostStatus(ctx, engine.PostStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		Mode: engine.PostWriting, Holder: lockstore.Holder{ID: "agent-a"},
		CallerRevision: "rev-1",
	})
	if !post.Success {
		t.Fatalf("A acquire failed: %+v", post)
	}

	// B wants the same file: conflict, and the lock is visible as DIRECT.
	check = e.CheckStatus(ctx, engine.CheckStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		CallerRevision: "rev-1", HolderID: "agent-b",
	})
	if check.Status != engine.StatusConflict {
		t.Fatalf("B check status = %s, want CONFLICT", check.Status)
	}
	if entry := check.Locks["src/auth.ts"]; entry.User != "agent-a" || entry.LockType != engine.LockDirect {
		t.Fatalf("B sees lock %+v, want agent-a/DIRECT", entry)
	}

	// B probing a dependent file sees the lock one hop away.
	check = e.CheckStatus(ctx, engine.CheckStatusRequest{
		Scope: testScope, FilePaths: []string{"src/api.ts"},
		CallerRevision: "rev-1", HolderID: "agent-b",
	})
	if entry := check.Locks["src/auth.ts"]; entry.LockType != engine.LockNeighbor {
		t.Fatalf("B neighbor view %+v, want NEIGHBOR entry for src/auth.ts", entry)
	}

	// A pushes rev-2 and releases.
	post = e.PostStatus(ctx, engine.PostStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		Mode: engine.PostOpen, Holder: lockstore.Holder{ID: "agent-a"},
		CallerRevision: "rev-2", NewRevision: "rev-2",
	})
	if !post.Success {
		t.Fatalf("A release failed: %+v", post)
	}

	// B is now stale and must pull before working.
	check = e.CheckStatus(ctx, engine.CheckStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		CallerRevision: "rev-1", HolderID: "agent-b",
	})
	if check.Status != engine.StatusStale {
		t.Fatalf("B post-release status = %s, want STALE", check.Status)
	}
	if check.Directive.Action != directive.ActionPull {
		t.Fatalf("B post-release directive = %s, want PULL", check.Directive.Action)
	}
	if check.Directive.Metadata == nil || check.Directive.Metadata.RemoteHead != "rev-2" {
		t.Fatalf("B pull metadata = %+v, want remote head rev-2", check.Directive.Metadata)
	}

	// After pulling, B proceeds.
	check = e.CheckStatus(ctx, engine.CheckStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		CallerRevision: "rev-2", HolderID: "agent-b",
	})
	if check.Directive.Action != directive.ActionProceed {
		t.Fatalf("B final check = %s, want PROCEED", check.Directive.Action)
	}
}

// TestReleaseReportsOrphanedDependents verifies that releasing the only lock
// blocking a dependent file names that file in the response.
func TestReleaseReportsOrphanedDependents(t *testing.T) {
	e := newIntegrationEngine(t, nil)
	ctx := context.Background()

	post := e.PostStatus(ctx, engine.PostStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		Mode: engine.PostWriting, Holder: lockstore.Holder{ID: "agent-a"},
		CallerRevision: "rev-1",
	})
	if !post.Success {
		t.Fatalf("acquire failed: %+v", post)
	}

	post = e.PostStatus(ctx, engine.PostStatusRequest{
		Scope: testScope, FilePaths: []string{"src/auth.ts"},
		Mode: engine.PostOpen, Holder: lockstore.Holder{ID: "agent-a"},
		CallerRevision: "rev-1", NewRevision: "rev-1",
	})
	if !post.Success {
		t.Fatalf("release failed: %+v", post)
	}

	// src/api.ts depends on src/auth.ts and held no lock of its own, so it
	// was blocked solely by the released lock.
	found := false
	for _, fp := range post.OrphanedDependencies {
		if fp == "src/api.ts" {
			found = true
		}
	}
	if !found {
		t.Errorf("orphaned = %v, want src/api.ts included", post.OrphanedDependencies)
	}
}

// TestEventBusObservesLockLifecycle verifies the store publishes lifecycle
// events a monitoring subscriber can consume while the engine drives it.
func TestEventBusObservesLockLifecycle(t *testing.T) {
	bus := event.NewBus()

	var mu sync.Mutex
	var types []string
	bus.SubscribeAll(func(ev event.Event) {
		mu.Lock()
		types = append(types, ev.EventType())
		mu.Unlock()
	})

	e := newIntegrationEngine(t, bus)
	ctx := context.Background()

	post := e.PostStatus(ctx, engine.PostStatusRequest{
		Scope: testScope, FilePaths: []string{"src/db.ts"},
		Mode: engine.PostReading, Holder: lockstore.Holder{ID: "agent-a"},
		CallerRevision: "rev-1",
	})
	if !post.Success {
		t.Fatalf("acquire failed: %+v", post)
	}
	post = e.PostStatus(ctx, engine.PostStatusRequest{
		Scope: testScope, FilePaths: []string{"src/db.ts"},
		Mode: engine.PostOpen, Holder: lockstore.Holder{ID: "agent-a"},
		CallerRevision: "rev-2", NewRevision: "rev-2",
	})
	if !post.Success {
		t.Fatalf("release failed: %+v", post)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		got := append([]string(nil), types...)
		mu.Unlock()

		if contains(got, "lock.acquired") && contains(got, "lock.released") && contains(got, "head.advanced") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("events = %v, want acquired, released, and head.advanced", got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
