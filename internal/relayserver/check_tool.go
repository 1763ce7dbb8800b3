package relayserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/relay-dev/relay/internal/engine"
	"github.com/relay-dev/relay/internal/identity"
	"github.com/relay-dev/relay/internal/logging"
	"github.com/relay-dev/relay/internal/scope"
)

// CheckStatusTool is the read path: it reports lock visibility and freshness
// for a set of files without taking any locks.
type CheckStatusTool struct {
	eng *engine.Engine
	log *logging.Logger
}

// NewCheckStatusTool creates the check_status tool backed by eng.
func NewCheckStatusTool(eng *engine.Engine, log *logging.Logger) *CheckStatusTool {
	return &CheckStatusTool{eng: eng, log: log}
}

// Definition returns the MCP tool definition for check_status.
func (t *CheckStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("check_status",
		mcp.WithDescription("Check lock and freshness status for a set of files before reading or editing them. Returns visible locks, warnings, and an orchestration directive."),
		mcp.WithString("username",
			mcp.Required(),
			mcp.Description("Identity of the calling agent."),
		),
		mcp.WithArray("file_paths",
			mcp.Required(),
			mcp.Description("Repository-relative paths the agent intends to touch."),
			mcp.Items(map[string]any{"type": "string"}),
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
	)
}

// Handle parses the request, runs the engine's read path, and returns the
// response as JSON text.
func (t *CheckStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseCommonArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	user := identity.FromLogin(args.username)
	resp := t.eng.CheckStatus(ctx, engine.CheckStatusRequest{
		Scope:          args.scope,
		FilePaths:      args.filePaths,
		CallerRevision: args.agentHead,
		HolderID:       user.HolderID(),
	})

	t.log.Debug("check_status served",
		"holder", user.HolderID(),
		"scope", args.scope.Key(),
		"files", len(args.filePaths),
		"status", string(resp.Status),
	)
	return jsonResult(resp)
}

// commonArgs are the fields shared by both tools.
type commonArgs struct {
	username  string
	filePaths []string
	agentHead string
	scope     scope.Scope
}

func parseCommonArgs(req mcp.CallToolRequest) (commonArgs, error) {
	var args commonArgs

	username, err := req.RequireString("username")
	if err != nil {
		return args, fmt.Errorf("username: %w", err)
	}
	filePaths, err := req.RequireStringSlice("file_paths")
	if err != nil {
		return args, fmt.Errorf("file_paths: %w", err)
	}
	if len(filePaths) == 0 {
		return args, fmt.Errorf("file_paths: must name at least one file")
	}
	agentHead, err := req.RequireString("agent_head")
	if err != nil {
		return args, fmt.Errorf("agent_head: %w", err)
	}
	repoURL, err := req.RequireString("repo_url")
	if err != nil {
		return args, fmt.Errorf("repo_url: %w", err)
	}

	sc := scope.New(repoURL, req.GetString("branch", "main"))
	if err := sc.Validate(); err != nil {
		return args, err
	}

	args.username = username
	args.filePaths = filePaths
	args.agentHead = agentHead
	args.scope = sc
	return args, nil
}

// jsonResult marshals v and wraps it as a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
