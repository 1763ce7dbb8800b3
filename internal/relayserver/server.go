package relayserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/relay-dev/relay/internal/engine"
	"github.com/relay-dev/relay/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with both coordination tools registered.
// The engine carries all state; the server itself is stateless and safe
// to serve over stdio.
func New(name string, eng *engine.Engine, log *logging.Logger) *server.MCPServer {
	if log == nil {
		log = logging.NopLogger()
	}

	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	checkTool := NewCheckStatusTool(eng, log)
	s.AddTool(checkTool.Definition(), checkTool.Handle)

	postTool := NewPostStatusTool(eng, log)
	s.AddTool(postTool.Definition(), postTool.Handle)

	return s
}

// serverInstructions tells a connected agent how to drive the two tools.
func serverInstructions() string {
	return `You have access to a repository coordination server shared by
every agent working on the same repository and branch.

## Workflow

1. BEFORE reading or editing any file, call check_status with the files
   you intend to touch, your current commit hash, and the repository URL.
2. Follow the "orchestration" directive in the response:
   - PROCEED: go ahead.
   - PULL: your checkout is behind the shared head. Sync first, then retry.
   - WAIT: another agent holds a conflicting lock. Retry after a short delay.
   - SWITCH_TASK: the files are contested; work on something else for now.
   - STOP: the coordination backend is unavailable. Do not write.
3. To take a lock, call post_status with status READING or WRITING for the
   files you will touch. WRITING is exclusive; READING is shared.
4. When you are done AND your commits are pushed, call post_status with
   status OPEN and new_repo_head set to the pushed commit hash. This
   releases your locks and advances the shared head.

## Rules

- Never edit a file another agent holds a WRITING lock on.
- Locks expire automatically after a few minutes. Re-post your status while
  long work is ongoing to keep them alive.
- The "orphaned_dependencies" field of an OPEN response lists files that
  were only blocked by your locks. Mention them so other agents can pick
  them up.`
}
