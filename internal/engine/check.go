package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/relay-dev/relay/internal/directive"
	"github.com/relay-dev/relay/internal/lockstore"
)

// CheckStatus is the read path. It never mutates lock or revision state;
// every outcome, including an unreachable backend, is resolved into a
// directive rather than an error.
func (e *Engine) CheckStatus(ctx context.Context, req CheckStatusRequest) CheckStatusResponse {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	log := e.log.WithScope(req.Scope.String()).WithHolder(req.HolderID)

	head, err := e.store.RepoHead(ctx, req.Scope)
	if err != nil {
		log.Warn("check_status: backend unreachable", "error", err.Error())
		return e.offlineCheck()
	}

	// One snapshot covers the requested files and every one-hop neighbor,
	// so NEIGHBOR visibility needs no second round-trip.
	neighbors := make(map[string][]string, len(req.FilePaths))
	querySet := append([]string(nil), req.FilePaths...)
	for _, fp := range req.FilePaths {
		ns := e.graph.Neighbors(fp)
		neighbors[fp] = ns
		querySet = append(querySet, ns...)
	}
	querySet = lo.Uniq(querySet)

	snap, err := e.store.Snapshot(ctx, req.Scope, querySet)
	if err != nil {
		log.Warn("check_status: backend unreachable", "error", err.Error())
		return e.offlineCheck()
	}

	requested := make(map[string]bool, len(req.FilePaths))
	for _, fp := range req.FilePaths {
		requested[fp] = true
	}

	// DIRECT entries: requested files locked by someone else.
	locks := make(map[string]LockEntry)
	var directFiles []string
	for _, fp := range req.FilePaths {
		if rec, ok := foreignRecord(snap[fp], req.HolderID); ok {
			locks[fp] = lockEntry(rec, LockDirect)
			directFiles = append(directFiles, fp)
		}
	}

	// NEIGHBOR entries: locked files adjacent to any requested file,
	// excluding the requested files themselves.
	var neighborFiles []string
	for _, fp := range req.FilePaths {
		for _, n := range neighbors[fp] {
			if requested[n] {
				continue
			}
			if _, seen := locks[n]; seen {
				continue
			}
			if rec, ok := foreignRecord(snap[n], req.HolderID); ok {
				locks[n] = lockEntry(rec, LockNeighbor)
				neighborFiles = append(neighborFiles, n)
			}
		}
	}
	sort.Strings(directFiles)
	sort.Strings(neighborFiles)

	var warnings []string

	// Staleness dominates lock-derived status: an out-of-date caller's
	// lock view cannot be trusted until it syncs.
	if head != "" && req.CallerRevision != head {
		warnings = append(warnings, "branch behind: remote head is "+head)
		log.Info("check_status: stale caller", "caller_revision", req.CallerRevision, "repo_head", head)
		return CheckStatusResponse{
			Status:    StatusStale,
			RepoHead:  head,
			Locks:     locks,
			Warnings:  warnings,
			Directive: directive.Pull(head),
		}
	}

	if len(directFiles) > 0 {
		owner := locks[directFiles[0]].User
		reason := fmt.Sprintf("%s is locked by %s", directFiles[0], owner)
		log.Info("check_status: direct conflict", "file_path", directFiles[0], "lock_owner", owner)
		return CheckStatusResponse{
			Status:    StatusConflict,
			RepoHead:  displayHead(head),
			Locks:     locks,
			Warnings:  warnings,
			Directive: directive.SwitchTask(reason, owner, directFiles),
		}
	}

	if len(neighborFiles) > 0 {
		reason := fmt.Sprintf("neighbor file %s is locked by %s", neighborFiles[0], locks[neighborFiles[0]].User)
		log.Info("check_status: neighbor conflict", "file_path", neighborFiles[0])
		return CheckStatusResponse{
			Status:    StatusConflict,
			RepoHead:  displayHead(head),
			Locks:     locks,
			Warnings:  warnings,
			Directive: directive.SwitchTask(reason, "", neighborFiles),
		}
	}

	log.Debug("check_status: clear", "files", len(req.FilePaths))
	return CheckStatusResponse{
		Status:    StatusOK,
		RepoHead:  displayHead(head),
		Locks:     locks,
		Warnings:  []string{},
		Directive: directive.Proceed("files are unlocked and revision is current"),
	}
}

// offlineCheck is the read path's unreachable-backend branch. Read-only work
// elsewhere is still safe, so the directive favors switching tasks over
// halting.
func (e *Engine) offlineCheck() CheckStatusResponse {
	return CheckStatusResponse{
		Status:    StatusOffline,
		RepoHead:  "unknown",
		Locks:     map[string]LockEntry{},
		Warnings:  []string{"OFFLINE_MODE: coordination backend unreachable"},
		Directive: directive.SwitchTask("system offline", "", nil),
	}
}

// foreignRecord picks the lock to display for a file from records held by
// holders other than the caller: a writer wins over readers.
func foreignRecord(recs []lockstore.LockRecord, callerID string) (lockstore.LockRecord, bool) {
	var best lockstore.LockRecord
	found := false
	for _, r := range recs {
		if r.HolderID == callerID {
			continue
		}
		if !found || (r.Mode == lockstore.ModeWriting && best.Mode != lockstore.ModeWriting) {
			best = r
			found = true
		}
	}
	return best, found
}

func lockEntry(rec lockstore.LockRecord, lockType string) LockEntry {
	return LockEntry{
		User:      rec.HolderID,
		Status:    string(rec.Mode),
		LockType:  lockType,
		Timestamp: float64(rec.CreatedAt.UnixNano()) / 1e9,
		Message:   rec.Message,
	}
}
