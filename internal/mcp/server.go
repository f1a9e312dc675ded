// Package mcp exposes workout templates, session history, and recent logs
// to LLM tooling over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/civatrix/reptrack/internal/bridge"
	"github.com/civatrix/reptrack/internal/logbuf"
	"github.com/civatrix/reptrack/internal/store"
)

// New creates an MCP server with all tools and resources registered.
func New(st *store.Store, primary *bridge.Primary, logs *logbuf.Buffer, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("reptrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Workout tracking server. Create templates, start and drive workout sessions, and query completed sessions and device logs. All data belongs to the single local user."),
	)

	h := &handlers{st: st, primary: primary, logs: logs, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListTemplates, Handler: h.listTemplates},
		server.ServerTool{Tool: toolCreateTemplate, Handler: h.createTemplate},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolStartWorkout, Handler: h.startWorkout},
		server.ServerTool{Tool: toolRecordSet, Handler: h.recordSet},
		server.ServerTool{Tool: toolSelectSet, Handler: h.selectSet},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resLogs, Handler: h.recentLogs},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers. Session
// state lives in the primary bridge, which serializes tool calls against
// inbound satellite events.
type handlers struct {
	st      *store.Store
	primary *bridge.Primary
	logs    *logbuf.Buffer
	log     *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"reptrack://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("The ten most recent workout sessions with per-set completion state"),
	mcp.WithMIMEType("application/json"),
)

var resLogs = mcp.NewResource(
	"reptrack://logs",
	"Device Logs",
	mcp.WithResourceDescription("Recent log lines from this device, oldest first"),
	mcp.WithMIMEType("text/plain"),
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.st.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	if len(workouts) > 10 {
		workouts = workouts[:10]
	}

	data, err := json.Marshal(workouts)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) recentLogs(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(h.logs.Lines(), "\n"),
		},
	}, nil
}
