// Package mcpserver exposes registered operations as MCP tools.
//
// Each operation becomes a tool with the same name, description and input
// schema. A tool call runs the registry execution and returns the envelope
// as text content; IsError mirrors success=false.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/crmops/internal/api/ctxkeys"
	"github.com/matiasleandrokruk/crmops/internal/domain/operation"
	"github.com/matiasleandrokruk/crmops/internal/infra/logger"
	"github.com/matiasleandrokruk/crmops/internal/version"
)

const serverName = "crmops"

// Runner is the registry surface exposed over MCP. *operation.Registry satisfies it.
type Runner interface {
	Definitions() []operation.Definition
	Execute(ctx context.Context, name, input string, ec operation.ExecutionContext) string
}

// Identity is the caller every tool call of one server runs as.
type Identity struct {
	WorkspaceID string
	UserID      string
}

// New builds an MCP server with one tool per registered operation.
func New(runner Runner, identity Identity, lggr *zap.Logger) *mcp.Server {
	if lggr == nil {
		lggr = zap.NewNop()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version.Version}, nil)
	for _, def := range runner.Definitions() {
		server.AddTool(toTool(def), toolHandler(runner, def.Name, identity, lggr))
	}
	return server
}

// NewHTTPHandler serves MCP over streamable HTTP. The identity of a session is
// taken from the request that opened it, as set by the API middleware.
func NewHTTPHandler(runner Runner, lggr *zap.Logger) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return New(runner, IdentityFromContext(r.Context()), lggr)
	}, nil)
}

// IdentityFromContext reads the workspace and user injected by the API middleware.
func IdentityFromContext(ctx context.Context) Identity {
	return Identity{
		WorkspaceID: ctxkeys.String(ctx, ctxkeys.WorkspaceID),
		UserID:      ctxkeys.String(ctx, ctxkeys.UserID),
	}
}

// Serve runs server over stdio until ctx is done or the client disconnects.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func toTool(def operation.Definition) *mcp.Tool {
	var schema map[string]any
	if err := json.Unmarshal(def.InputSchema, &schema); err != nil || schema == nil {
		schema = map[string]any{"type": "object"}
	}
	return &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
}

func toolHandler(runner Runner, name string, identity Identity, lggr *zap.Logger) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := "{}"
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			input = string(req.Params.Arguments)
		}

		correlationID := uuid.NewString()
		ec := operation.ExecutionContext{
			WorkspaceID:   identity.WorkspaceID,
			UserID:        identity.UserID,
			CorrelationID: correlationID,
			Tracer: logger.Tracer(lggr,
				zap.String("operation", name),
				zap.String("transport", "mcp"),
				zap.String("correlation_id", correlationID)),
		}

		out := runner.Execute(ctx, name, input, ec)

		var probe operation.Response
		_ = json.Unmarshal([]byte(out), &probe)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
			IsError: !probe.Success,
		}, nil
	}
}
