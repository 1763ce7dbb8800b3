package engine

import (
	"github.com/relay-dev/relay/internal/directive"
	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/scope"
)

// Status is the aggregate result of a read-path check.
type Status string

const (
	StatusOK       Status = "OK"
	StatusStale    Status = "STALE"
	StatusConflict Status = "CONFLICT"
	StatusOffline  Status = "OFFLINE"
)

// PostMode is the desired lock transition on the write path. It extends the
// store's lock modes with OPEN, which releases rather than acquires.
type PostMode string

const (
	PostReading PostMode = "READING"
	PostWriting PostMode = "WRITING"
	PostOpen    PostMode = "OPEN"
)

// Valid reports whether m is one of the three transitions.
func (m PostMode) Valid() bool {
	return m == PostReading || m == PostWriting || m == PostOpen
}

// Lock visibility kinds in a check response.
const (
	LockDirect   = "DIRECT"
	LockNeighbor = "NEIGHBOR"
)

// LockEntry is one visible lock in a check response, shaped for display:
// who holds it, in what mode, and whether it sits on the queried file itself
// or on a graph neighbor.
type LockEntry struct {
	User      string  `json:"user"`
	Status    string  `json:"status"`    // READING or WRITING
	LockType  string  `json:"lock_type"` // DIRECT or NEIGHBOR
	Timestamp float64 `json:"timestamp"` // unix seconds of the record's creation
	Message   string  `json:"message,omitempty"`
}

// CheckStatusRequest is the read-path input.
type CheckStatusRequest struct {
	Scope          scope.Scope
	FilePaths      []string
	CallerRevision string
	HolderID       string // caller identity; its own locks are never conflicts
}

// CheckStatusResponse is the read-path output.
type CheckStatusResponse struct {
	Status    Status               `json:"status"`
	RepoHead  string               `json:"repo_head"`
	Locks     map[string]LockEntry `json:"locks"`
	Warnings  []string             `json:"warnings"`
	Directive directive.Directive  `json:"orchestration"`
}

// PostStatusRequest is the write-path input. NewRevision is required only
// for OPEN: it is the revision just synchronized upstream.
type PostStatusRequest struct {
	Scope          scope.Scope
	FilePaths      []string
	Mode           PostMode
	Holder         lockstore.Holder
	Message        string
	CallerRevision string
	NewRevision    string
}

// PostStatusResponse is the write-path output.
type PostStatusResponse struct {
	Success              bool                `json:"success"`
	OrphanedDependencies []string            `json:"orphaned_dependencies"`
	Directive            directive.Directive `json:"orchestration"`
}

// GraphView is the dependency-graph provider the engine consults. The
// engine only reads one-hop adjacency; it never mutates edges.
type GraphView interface {
	Neighbors(filePath string) []string
}
