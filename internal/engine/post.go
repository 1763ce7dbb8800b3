package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/relay-dev/relay/internal/directive"
	"github.com/relay-dev/relay/internal/lockstore"
)

// PostStatus is the write path: atomic acquire/upgrade for READING and
// WRITING, release for OPEN. A write-intent request never proceeds
// optimistically when the backend is unreachable — two holders must not both
// believe they hold the same exclusive lock.
func (e *Engine) PostStatus(ctx context.Context, req PostStatusRequest) PostStatusResponse {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	log := e.log.WithScope(req.Scope.String()).WithHolder(req.Holder.ID)

	if !req.Mode.Valid() {
		// The transport boundary validates; reaching here is a caller bug.
		return failure(directive.Stop(fmt.Sprintf("invalid status %q", req.Mode)))
	}

	head, err := e.store.RepoHead(ctx, req.Scope)
	if err != nil {
		log.Warn("post_status: backend unreachable", "error", err.Error())
		return failure(directive.Stop("cannot safely acquire lock while offline"))
	}

	if req.Mode == PostOpen {
		return e.release(ctx, req, head, log.With("mode", string(req.Mode)))
	}
	return e.acquire(ctx, req, head, log.With("mode", string(req.Mode)))
}

func (e *Engine) acquire(ctx context.Context, req PostStatusRequest, head string, log logger) PostStatusResponse {
	// Staleness dominates: locks taken against an outdated view are not
	// meaningful, so the caller must sync first.
	if head != "" && req.CallerRevision != head {
		log.Info("post_status: stale caller", "caller_revision", req.CallerRevision, "repo_head", head)
		return failure(directive.Pull(head))
	}

	entries := make([]lockstore.Entry, len(req.FilePaths))
	for i, fp := range req.FilePaths {
		entries[i] = lockstore.Entry{
			FilePath: fp,
			Mode:     lockstore.Mode(req.Mode),
			Message:  req.Message,
		}
	}

	_, err := e.store.AcquireOrRefresh(ctx, req.Scope, req.Holder, entries, req.CallerRevision)
	if err != nil {
		var ce *lockstore.ConflictError
		if errors.As(err, &ce) {
			files := make([]string, len(ce.Conflicts))
			for i, c := range ce.Conflicts {
				files[i] = c.FilePath
			}
			owner := ce.Conflicts[0].HolderID
			reason := fmt.Sprintf("%s is locked by %s", ce.Conflicts[0].FilePath, owner)
			log.Info("post_status: conflict", "file_path", files[0], "lock_owner", owner)
			return failure(directive.Wait(reason, owner, files))
		}
		log.Warn("post_status: backend unreachable", "error", err.Error())
		return failure(directive.Stop("cannot safely acquire lock while offline"))
	}

	log.Info("post_status: acquired", "files", len(req.FilePaths))
	return PostStatusResponse{
		Success:              true,
		OrphanedDependencies: []string{},
		Directive:            directive.Proceed(fmt.Sprintf("%d file(s) locked for %s", len(req.FilePaths), req.Mode)),
	}
}

func (e *Engine) release(ctx context.Context, req PostStatusRequest, head string, log logger) PostStatusResponse {
	// OPEN means "done and synchronized"; without the synchronized
	// revision the caller released logically but never published.
	if req.NewRevision == "" {
		log.Info("post_status: release without revision")
		return failure(directive.Push("release requires a synchronized revision"))
	}

	// Snapshot the neighborhood before releasing so orphaned dependents
	// can be computed against the pre-release view.
	released := lo.Uniq(req.FilePaths)
	candidates, querySet := releaseNeighborhood(e.graph, released)
	pre, err := e.store.Snapshot(ctx, req.Scope, querySet)
	if err != nil {
		log.Warn("post_status: backend unreachable", "error", err.Error())
		return failure(directive.Stop("cannot safely acquire lock while offline"))
	}

	if _, err := e.store.Release(ctx, req.Scope, released, req.Holder.ID); err != nil {
		log.Warn("post_status: backend unreachable", "error", err.Error())
		return failure(directive.Stop("cannot safely acquire lock while offline"))
	}

	orphaned := orphanedDependents(e.graph, pre, released, candidates, req.Holder.ID)

	if req.NewRevision == head {
		// The lock is gone but nothing actually reached the remote.
		log.Info("post_status: released, remote unchanged", "repo_head", head)
		return PostStatusResponse{
			Success:              true,
			OrphanedDependencies: orphaned,
			Directive:            directive.Push("remote unchanged"),
		}
	}

	if err := e.store.SetRepoHead(ctx, req.Scope, req.NewRevision); err != nil {
		log.Warn("post_status: backend unreachable", "error", err.Error())
		return failure(directive.Stop("cannot safely acquire lock while offline"))
	}

	log.Info("post_status: released", "files", len(released), "new_head", req.NewRevision)
	return PostStatusResponse{
		Success:              true,
		OrphanedDependencies: orphaned,
		Directive:            directive.Proceed(fmt.Sprintf("%d file(s) released, repo head advanced", len(released))),
	}
}

// releaseNeighborhood returns the one-hop neighbors of the released files
// (the orphan candidates) and the full query set needed to evaluate them:
// released files, candidates, and the candidates' own neighbors.
func releaseNeighborhood(graph GraphView, released []string) (candidates, querySet []string) {
	releasedSet := make(map[string]bool, len(released))
	for _, fp := range released {
		releasedSet[fp] = true
	}

	for _, fp := range released {
		for _, n := range graph.Neighbors(fp) {
			if !releasedSet[n] {
				candidates = append(candidates, n)
			}
		}
	}
	candidates = lo.Uniq(candidates)

	querySet = append(append([]string(nil), released...), candidates...)
	for _, c := range candidates {
		querySet = append(querySet, graph.Neighbors(c)...)
	}
	return candidates, lo.Uniq(querySet)
}

// orphanedDependents computes which candidate files were blocked by a
// NEIGHBOR lock attributable only to the released files and now show no
// lock at all, so callers holding a stale "blocked" belief can re-evaluate
// without a fresh check_status round-trip.
func orphanedDependents(graph GraphView, pre map[string][]lockstore.LockRecord, released, candidates []string, holderID string) []string {
	releasedSet := make(map[string]bool, len(released))
	for _, fp := range released {
		releasedSet[fp] = true
	}

	// post simulates the store after the release: the holder's records on
	// released files are gone, everything else is untouched.
	live := func(fp string, afterRelease bool) bool {
		for _, rec := range pre[fp] {
			if afterRelease && releasedSet[fp] && rec.HolderID == holderID {
				continue
			}
			return true
		}
		return false
	}

	orphaned := []string{}
	for _, c := range candidates {
		if live(c, false) {
			continue // had its own lock, never a pure NEIGHBOR block
		}
		hadNeighborLock, hasNeighborLock := false, false
		for _, n := range graph.Neighbors(c) {
			if live(n, false) {
				hadNeighborLock = true
			}
			if live(n, true) {
				hasNeighborLock = true
			}
		}
		if hadNeighborLock && !hasNeighborLock {
			orphaned = append(orphaned, c)
		}
	}
	sort.Strings(orphaned)
	return orphaned
}

func failure(d directive.Directive) PostStatusResponse {
	return PostStatusResponse{
		Success:              false,
		OrphanedDependencies: []string{},
		Directive:            d,
	}
}

// logger is the slice of the logging API these paths use; it keeps the
// helpers testable without a concrete logger.
type logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}
