package relayserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/relay-dev/relay/internal/engine"
	"github.com/relay-dev/relay/internal/identity"
	"github.com/relay-dev/relay/internal/lockstore"
	"github.com/relay-dev/relay/internal/logging"
)

// PostStatusTool is the write path: it acquires, refreshes, or releases
// locks and advances the shared head on release.
type PostStatusTool struct {
	eng *engine.Engine
	log *logging.Logger
}

// NewPostStatusTool creates the post_status tool backed by eng.
func NewPostStatusTool(eng *engine.Engine, log *logging.Logger) *PostStatusTool {
	return &PostStatusTool{eng: eng, log: log}
}

// Definition returns the MCP tool definition for post_status.
func (t *PostStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("post_status",
		mcp.WithDescription("Declare intent on a set of files: READING or WRITING acquires or refreshes locks, OPEN releases them and publishes the new repository head."),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("Identity of the calling agent."),
		),
		mcp.WithArray("file_paths",
			mcp.Required(),
			mcp.Description("Repository-relative paths the declaration covers."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("Desired transition: READING, WRITING, or OPEN."),
			mcp.Enum("READING", "WRITING", "OPEN"),
		),
		mcp.WithString("agent_head",
			mcp.Required(),
			mcp.Description("Commit hash of the agent's local checkout."),
		),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Remote URL of the repository being coordinated."),
		),
		mcp.WithString("branch",
			mcp.Description("Branch being coordinated. Defaults to main."),
			mcp.DefaultString("main"),
		),
		mcp.WithString("message",
			mcp.Description("Short note shown to other agents alongside the lock."),
		),
		mcp.WithString("new_repo_head",
			mcp.Description("For OPEN only: the commit hash just pushed upstream."),
		),
	)
}

// Handle parses the request, runs the engine's write path, and returns the
// response as JSON text.
func (t *PostStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseCommonArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode := engine.PostMode(strings.ToUpper(req.GetString("status", "")))
	if !mode.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("status: must be READING, WRITING, or OPEN (got %q)", string(mode))), nil
	}

	user := identity.FromLogin(args.username)
	resp := t.eng.PostStatus(ctx, engine.PostStatusRequest{
		Scope:          args.scope,
		FilePaths:      args.filePaths,
		Mode:           mode,
		Holder:         lockstore.Holder{ID: user.HolderID(), Name: user.Name},
		Message:        req.GetString("message", ""),
		CallerRevision: args.agentHead,
		NewRevision:    req.GetString("new_repo_head", ""),
	})

	t.log.Debug("post_status served",
		"holder", user.HolderID(),
		"scope", args.scope.Key(),
		"mode", string(mode),
		"files", len(args.filePaths),
		"success", resp.Success,
	)
	return jsonResult(resp)
}
