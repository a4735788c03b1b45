// Package mcp exposes the orchestrator facade to agent clients over the
// Model Context Protocol. The HTTP mount sits behind the same auth
// middleware as the REST API, so tool handlers find the tenant key on the
// request context.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"migration-assess/backend/internal/auth"
	"migration-assess/backend/internal/flow"
	"migration-assess/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	machine   *flow.Machine
}

func NewServer(machine *flow.Machine) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Migration Assessment Flows",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		machine: machine,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_flows",
			mcp.WithDescription("List the tenant's assessment flows"),
		),
		s.handleListFlows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"flow_status",
			mcp.WithDescription("Get the status of one flow, optionally recomputing asset readiness"),
			mcp.WithString("flow_id", mcp.Required(), mcp.Description("The master flow id")),
			mcp.WithBoolean("refresh_readiness", mcp.Description("Recompute readiness from current asset rows")),
		),
		s.handleFlowStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resume_flow",
			mcp.WithDescription("Confirm the awaiting phase of a flow and advance to the next phase"),
			mcp.WithString("flow_id", mcp.Required(), mcp.Description("The master flow id")),
		),
		s.handleResumeFlow,
	)
}

func tenantKey(ctx context.Context) (models.TenantKey, error) {
	key, ok := auth.KeyFromContext(ctx)
	if !ok {
		return models.TenantKey{}, fmt.Errorf("no tenant scope on request")
	}
	return key, nil
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := tenantKey(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	flows, err := s.machine.ListFlows(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list flows: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(flows)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleFlowStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := tenantKey(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	flowID, ok := args["flow_id"].(string)
	if !ok || flowID == "" {
		return mcp.NewToolResultError("Missing required parameter: flow_id"), nil
	}
	refresh, _ := args["refresh_readiness"].(bool)

	status, err := s.machine.GetStatus(ctx, key, flowID, refresh)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get status: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(status)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleResumeFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := tenantKey(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	flowID, ok := args["flow_id"].(string)
	if !ok || flowID == "" {
		return mcp.NewToolResultError("Missing required parameter: flow_id"), nil
	}

	child, err := s.machine.Resume(ctx, key, flowID, map[string]any{"approved": true, "via": "mcp"})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resume: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(child)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
