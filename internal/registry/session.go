// Package registry is the client side of the tool registry: one SSE-backed
// MCP session per orchestration run, with the connect -> initialize ->
// discover -> call* -> close lifecycle enforced as a state machine.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghostequity/ghostequity/internal/orchestrator/models"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
)

// State tracks the session lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateInitialized
	StateReady
	StateCalling
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateInitialized:
		return "initialized"
	case StateReady:
		return "ready"
	case StateCalling:
		return "calling"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// mcpClient is the slice of the MCP client the session depends on,
// extracted for testability.
type mcpClient interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Session wraps one live MCP connection. It is owned by a single
// orchestration run and is not safe for concurrent tool calls, which the
// strictly sequential agent loop never issues anyway.
type Session struct {
	client mcpClient

	mu    sync.Mutex
	state State
}

// Dial opens the SSE transport to the tool server. The protocol handshake
// happens separately via Initialize so the orchestrator can fail fast with
// the underlying cause.
func Dial(ctx context.Context, sseURL string) (*Session, error) {
	c, err := client.NewSSEMCPClient(sseURL)
	if err != nil {
		return nil, fmt.Errorf("create SSE client: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("connect to tool server at %s: %w", sseURL, err)
	}

	log.Debug().Str("url", sseURL).Msg("transport connected")

	return &Session{client: c, state: StateConnecting}, nil
}

// newSession wires a session around an existing client, for tests.
func newSession(c mcpClient) *Session {
	return &Session{client: c, state: StateConnecting}
}

// Initialize performs the MCP handshake. Must be called exactly once,
// before ListTools or CallTool.
func (s *Session) Initialize(ctx context.Context) error {
	if err := s.transition(StateConnecting, StateInitialized); err != nil {
		return err
	}

	request := mcp.InitializeRequest{}
	request.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	request.Params.ClientInfo = mcp.Implementation{
		Name:    "ghostequity",
		Version: "0.1.0",
	}

	result, err := s.client.Initialize(ctx, request)
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("initialize handshake: %w", err)
	}

	log.Debug().
		Str("server", result.ServerInfo.Name).
		Str("version", result.ServerInfo.Version).
		Msg("session initialized")

	s.setState(StateReady)
	return nil
}

// ListTools returns the tool catalog converted to provider descriptors.
// The result is authoritative for the session's lifetime; there is no
// re-discovery mid-session.
func (s *Session) ListTools(ctx context.Context) ([]provider.ToolDefinition, error) {
	if err := s.require(StateReady); err != nil {
		return nil, err
	}

	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]provider.ToolDefinition, 0, len(result.Tools))
	for _, tool := range result.Tools {
		tools = append(tools, fromMCPTool(tool))
	}

	return tools, nil
}

// CallTool dispatches one invocation. A transport failure mid-call leaves
// the session disconnected and is returned as an error; an adapter-reported
// failure arrives inside the result.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
	if err := s.transition(StateReady, StateCalling); err != nil {
		return models.ToolResult{}, err
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := s.client.CallTool(ctx, request)
	if err != nil {
		// Disconnect while calling: the session is unusable, no silent resume.
		s.setState(StateDisconnected)
		return models.ToolResult{}, fmt.Errorf("call tool %s: %w", name, err)
	}

	s.setState(StateReady)

	text := contentText(result.Content)
	if result.IsError {
		return models.ToolResult{Name: name, Error: text}, nil
	}
	return models.ToolResult{Name: name, Content: text}, nil
}

// Close releases the transport. Safe to call exactly once per run from a
// deferred cleanup; repeated closes are rejected.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return fmt.Errorf("session already closed")
	}
	s.state = StateClosed
	s.mu.Unlock()

	return s.client.Close()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) transition(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return fmt.Errorf("invalid session state %s, want %s", s.state, from)
	}
	s.state = to
	return nil
}

func (s *Session) require(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != state {
		return fmt.Errorf("invalid session state %s, want %s", s.state, state)
	}
	return nil
}

// contentText concatenates the text content items of a tool result.
func contentText(contents []mcp.Content) string {
	var text string
	for _, content := range contents {
		if tc, ok := content.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}
