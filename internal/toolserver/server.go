// Package toolserver exposes the adapter tools over an MCP SSE endpoint so
// that analyzer sessions can discover and invoke them remotely.
package toolserver

import (
	"context"

	"github.com/ghostequity/ghostequity/internal/adapter"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Server wraps an MCP server populated with the registered tools.
type Server struct {
	mcpServer *server.MCPServer
}

// New builds a tool server advertising the given tools.
func New(name, version string, tools []adapter.Tool) *Server {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
	)

	for _, tool := range tools {
		s.AddTool(toMCPTool(tool.Definition()), makeHandler(tool))
	}

	return &Server{mcpServer: s}
}

// MCP returns the underlying MCP server, mainly for in-process test wiring.
func (s *Server) MCP() *server.MCPServer {
	return s.mcpServer
}

// Serve blocks, serving the SSE transport on addr with the given SSE path.
func (s *Server) Serve(addr, ssePath string) error {
	sse := server.NewSSEServer(s.mcpServer,
		server.WithSSEEndpoint(ssePath),
	)
	log.Info().Str("addr", addr).Str("path", ssePath).Msg("tool server listening")
	return sse.Start(addr)
}

// makeHandler bridges one adapter into the MCP call contract. Adapter
// failures surface as tool-level errors on the result, never as protocol
// errors.
func makeHandler(tool adapter.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		log.Info().Str("tool", tool.Name()).Interface("args", args).Msg("tool invoked")

		result := tool.Invoke(ctx, args)
		if !result.Success {
			log.Warn().Str("tool", tool.Name()).Str("reason", result.Error).Msg("tool failed")
			return mcp.NewToolResultError(result.Error), nil
		}
		return mcp.NewToolResultText(result.Payload), nil
	}
}

// toMCPTool converts an advertised tool definition into the wire schema.
func toMCPTool(def provider.ToolDefinition) mcp.Tool {
	tool := mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: mcp.ToolInputSchema{Type: "object"},
	}
	if def.Parameters == nil {
		return tool
	}

	properties := make(map[string]any, len(def.Parameters.Properties))
	for name, prop := range def.Parameters.Properties {
		properties[name] = toMCPProperty(prop)
	}
	tool.InputSchema.Properties = properties
	tool.InputSchema.Required = def.Parameters.Required
	return tool
}

func toMCPProperty(prop provider.PropertySchema) map[string]any {
	out := map[string]any{"type": prop.Type}
	if prop.Description != "" {
		out["description"] = prop.Description
	}
	if len(prop.Enum) > 0 {
		out["enum"] = prop.Enum
	}
	if prop.Items != nil {
		out["items"] = toMCPProperty(*prop.Items)
	}
	return out
}
