// Package mcp provides the MCP (Model Context Protocol) server implementation.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xvierd/branchbar/internal/display"
	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/logging"
	"github.com/xvierd/branchbar/internal/ports"
)

const defaultRecentLimit = 10

// Server implements the MCP server using mark3labs/mcp-go.
type Server struct {
	server        *server.MCPServer
	stateProvider ports.MCPStateProvider
	log           *logging.ScopedLogger
	version       string

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new MCP server instance.
func NewServer(stateProvider ports.MCPStateProvider, version string, log *logging.ScopedLogger) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		stateProvider: stateProvider,
		log:           log,
		version:       version,
	}

	s.server = server.NewMCPServer(
		"branchbar",
		version,
		server.WithLogging(),
	)

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	s.server.AddTool(
		mcp.NewTool(
			"get_branch_state",
			mcp.WithDescription("Get the monitored repository, its current branch state and the status bar label"),
		),
		s.handleGetBranchState,
	)

	selectTool := mcp.NewTool(
		"select_repository",
		mcp.WithDescription("Select a git repository to monitor; the branch is resolved in the background"),
		mcp.WithString(
			"path",
			mcp.Required(),
			mcp.Description("Absolute path to a folder inside a git repository"),
		),
	)
	s.server.AddTool(selectTool, s.handleSelectRepository)

	s.server.AddTool(
		mcp.NewTool(
			"clear_repository",
			mcp.WithDescription("Stop monitoring the selected repository"),
		),
		s.handleClearRepository,
	)

	s.server.AddTool(
		mcp.NewTool(
			"refresh",
			mcp.WithDescription("Re-resolve the branch of the selected repository now"),
		),
		s.handleRefresh,
	)

	recentTool := mcp.NewTool(
		"list_recent_repositories",
		mcp.WithDescription("List previously selected repositories, most recent first"),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of repositories to return (default: 10)"),
		),
	)
	s.server.AddTool(recentTool, s.handleListRecent)
}

// Start begins serving MCP requests via stdio.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info("mcp server starting", "version", s.version)
	return server.ServeStdio(s.server)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// IsRunning returns true if the server is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx == nil {
		return false
	}
	return s.ctx.Err() == nil
}

// Ensure Server implements ports.MCPHandler.
var _ ports.MCPHandler = (*Server)(nil)

// snapshotJSON is the wire shape of a coordinator snapshot.
func snapshotJSON(snap domain.Snapshot) map[string]interface{} {
	result := map[string]interface{}{
		"label":  snap.Label,
		"state":  string(snap.State.Kind),
		"detail": display.Detail(snap.State),
	}
	switch snap.State.Kind {
	case domain.StateBranch:
		result["branch"] = snap.State.Name
	case domain.StateDetached:
		result["short_hash"] = snap.State.ShortHash
	case domain.StateUnavailable:
		result["reason"] = snap.State.Reason
	}
	if snap.HasSelection() {
		result["repository"] = map[string]interface{}{
			"id":          snap.Selection.ID,
			"name":        snap.RepositoryName(),
			"path":        snap.RepositoryPath(),
			"selected_at": snap.Selection.SelectedAt.Format(time.RFC3339),
		}
	}
	if !snap.UpdatedAt.IsZero() {
		result["updated_at"] = snap.UpdatedAt.Format(time.RFC3339)
	}
	return result
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleGetBranchState handles the get_branch_state tool.
func (s *Server) handleGetBranchState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(snapshotJSON(s.stateProvider.Snapshot()))
}

// handleSelectRepository handles the select_repository tool.
func (s *Server) handleSelectRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required: " + err.Error()), nil
	}

	if err := s.stateProvider.Select(ctx, path); err != nil {
		s.log.Warn("mcp select rejected", "path", path, "error", err)
		if errors.Is(err, domain.ErrNotARepository) {
			return mcp.NewToolResultError(display.NotARepositoryMessage + " (" + path + ")"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to select repository: %v", err)), nil
	}

	return jsonResult(snapshotJSON(s.stateProvider.Snapshot()))
}

// handleClearRepository handles the clear_repository tool.
func (s *Server) handleClearRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stateProvider.Clear(ctx)
	return jsonResult(snapshotJSON(s.stateProvider.Snapshot()))
}

// handleRefresh handles the refresh tool.
func (s *Server) handleRefresh(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.stateProvider.Snapshot()
	if !snap.HasSelection() {
		return mcp.NewToolResultError(domain.ErrNoSelection.Error()), nil
	}
	s.stateProvider.RefreshNow()
	return jsonResult(map[string]interface{}{
		"refreshing": true,
		"current":    snapshotJSON(snap),
	})
}

// handleListRecent handles the list_recent_repositories tool.
func (s *Server) handleListRecent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", defaultRecentLimit))
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	repos, err := s.stateProvider.RecentRepositories(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list recent repositories: %v", err)), nil
	}

	items := make([]map[string]interface{}, 0, len(repos))
	for _, repo := range repos {
		items = append(items, map[string]interface{}{
			"name":             repo.Name,
			"path":             repo.Path,
			"last_selected_at": repo.LastSelectedAt.Format(time.RFC3339),
			"select_count":     repo.SelectCount,
		})
	}

	return jsonResult(map[string]interface{}{
		"repositories": items,
		"count":        len(items),
	})
}
