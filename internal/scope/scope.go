// Package scope identifies the unit of isolation for all lock and revision
// state: a (repository remote, branch) pair. Every lock key and repo head is
// implicitly namespaced by a scope.
package scope

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultBranch is assumed when a caller omits the branch.
const DefaultBranch = "main"

// Scope is a (remote URL, branch) pair. The zero value is invalid; use New.
type Scope struct {
	Remote string
	Branch string
}

// New normalizes a remote URL and branch into a Scope.
// An empty branch defaults to DefaultBranch.
func New(remote, branch string) Scope {
	remote = strings.TrimSuffix(strings.TrimSpace(remote), "/")
	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = DefaultBranch
	}
	return Scope{Remote: remote, Branch: branch}
}

// Validate reports whether the scope carries a usable remote.
func (s Scope) Validate() error {
	if s.Remote == "" {
		return fmt.Errorf("scope: remote URL is required")
	}
	if s.Branch == "" {
		return fmt.Errorf("scope: branch is required")
	}
	return nil
}

// Key returns a stable hex key for this scope, used as the composite
// storage prefix. Remote and branch are joined with a separator that
// cannot appear in either, so distinct scopes never collide textually
// before hashing.
func (s Scope) Key() string {
	h := xxhash.New()
	_, _ = h.WriteString(s.Remote)
	_, _ = h.WriteString("\n")
	_, _ = h.WriteString(s.Branch)
	return fmt.Sprintf("%016x", h.Sum64())
}

// String renders the scope for logs and error messages.
func (s Scope) String() string {
	return s.Remote + "@" + s.Branch
}
