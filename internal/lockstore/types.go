package lockstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relay-dev/relay/internal/scope"
)

// DefaultTTL is how long a record lives without a refresh.
const DefaultTTL = 300 * time.Second

// ErrConflict is the sentinel wrapped by every ConflictError, so callers can
// test with errors.Is without unpacking the conflict set.
var ErrConflict = errors.New("file locked by another holder")

// Mode is the kind of work a holder declared on a file.
type Mode string

const (
	ModeReading Mode = "READING"
	ModeWriting Mode = "WRITING"
)

// Valid reports whether m is a storable lock mode.
func (m Mode) Valid() bool {
	return m == ModeReading || m == ModeWriting
}

// Holder identifies who owns a lock record.
type Holder struct {
	ID   string
	Name string
}

// Entry is one file in an acquire request.
type Entry struct {
	FilePath string
	Mode     Mode
	Message  string
}

// LockRecord is a persisted ownership claim on a file.
type LockRecord struct {
	FilePath      string
	HolderID      string
	HolderName    string
	Mode          Mode
	KnownRevision string // holder's revision at acquire time
	Message       string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the record is dead at the given instant.
// A record expires exactly at ExpiresAt: a query at CreatedAt+TTL
// must no longer see it.
func (r LockRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Conflict names one file that blocked an acquire and who holds it.
type Conflict struct {
	FilePath string
	HolderID string
}

// ConflictError reports the full set of files that blocked an all-or-nothing
// acquire. It wraps ErrConflict.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s held by %s", c.FilePath, c.HolderID)
	}
	return "lock conflict: " + strings.Join(parts, ", ")
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Store is the persistence contract the engine depends on. Implementations
// must make AcquireOrRefresh linearizable with respect to other acquires and
// releases touching any overlapping file.
//
// The store never models backend unavailability itself; an error from any
// method is treated one layer up as the backend being unreachable.
type Store interface {
	// AcquireOrRefresh atomically acquires or refreshes every entry for the
	// holder. If any entry is held in a conflicting mode by a different
	// holder, nothing changes and a *ConflictError lists every blocked file.
	AcquireOrRefresh(ctx context.Context, sc scope.Scope, holder Holder, entries []Entry, callerRevision string) ([]LockRecord, error)

	// Release deletes the holder's records for the given paths and returns
	// the paths actually released. Paths not held by the holder are skipped
	// silently.
	Release(ctx context.Context, sc scope.Scope, filePaths []string, holderID string) ([]string, error)

	// Snapshot returns every active record for the given paths, keyed by
	// file path. Expired records are treated as absent (and evicted).
	Snapshot(ctx context.Context, sc scope.Scope, filePaths []string) (map[string][]LockRecord, error)

	// ScopeLocks returns every active record in the scope, sorted by file
	// path then holder, for listing and monitoring. Expired records are
	// treated as absent.
	ScopeLocks(ctx context.Context, sc scope.Scope) ([]LockRecord, error)

	// SweepExpired deletes every record store-wide whose expiry has passed
	// and returns the number deleted. Safe to run concurrently with any
	// other operation.
	SweepExpired(ctx context.Context, now time.Time) (int, error)

	// RepoHead returns the scope's last known post-push revision, or ""
	// if no release has ever recorded one.
	RepoHead(ctx context.Context, sc scope.Scope) (string, error)

	// SetRepoHead records a new post-push revision for the scope.
	SetRepoHead(ctx context.Context, sc scope.Scope, head string) error
}
