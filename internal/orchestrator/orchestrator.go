// Package orchestrator drives the model-directed tool-calling loop: one
// decision, one dispatch, one result, repeat, until the model produces a
// final answer or the round cap is hit.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghostequity/ghostequity/internal/extract"
	"github.com/ghostequity/ghostequity/internal/orchestrator/models"
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSession classifies transport-level failures: unreachable registry,
	// rejected handshake, disconnect mid-call. Fatal to the run.
	ErrSession = errors.New("session failed")

	// ErrRoundLimit is returned when the loop exhausts its round cap without
	// the model producing a final answer. Fatal to the run.
	ErrRoundLimit = errors.New("tool-call round limit exceeded")
)

// Session is one initialize -> discover -> call* lifecycle against the tool
// registry. Closing is the caller's responsibility so that cleanup runs on
// every exit path.
type Session interface {
	// Initialize performs the protocol handshake. Must succeed before any
	// other call.
	Initialize(ctx context.Context) error

	// ListTools returns the tool catalog, authoritative for the session.
	ListTools(ctx context.Context) ([]provider.ToolDefinition, error)

	// CallTool dispatches one invocation. A non-nil error is a transport
	// failure and fatal; an adapter-reported failure arrives inside the
	// ToolResult and is not.
	CallTool(ctx context.Context, name string, args map[string]any) (models.ToolResult, error)
}

// Options bound the loop and its outbound calls.
type Options struct {
	// MaxRounds caps tool-call rounds per run.
	MaxRounds int

	// CallTimeout applies to each outbound model or tool call.
	CallTimeout time.Duration

	// Temperature for agent decisions.
	Temperature float32
}

// Orchestrator manages the agent loop and conversation history for one run
// at a time. Each Run owns its history exclusively; concurrent runs need
// separate Orchestrator instances.
type Orchestrator struct {
	provider provider.Provider
	opts     Options
}

// New creates a new Orchestrator instance.
func New(p provider.Provider, opts Options) *Orchestrator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 8
	}
	return &Orchestrator{provider: p, opts: opts}
}

// Run executes the agent loop against an already-connected session and
// returns the model's final report text. The caller closes the session.
func (o *Orchestrator) Run(ctx context.Context, record *extract.Record, session Session) (string, error) {
	if err := o.call(ctx, session.Initialize); err != nil {
		return "", fmt.Errorf("%w: initialize: %v", ErrSession, err)
	}

	var tools []provider.ToolDefinition
	err := o.call(ctx, func(ctx context.Context) error {
		var listErr error
		tools, listErr = session.ListTools(ctx)
		return listErr
	})
	if err != nil {
		return "", fmt.Errorf("%w: list tools: %v", ErrSession, err)
	}

	catalog := make(map[string]provider.ToolDefinition, len(tools))
	for _, t := range tools {
		catalog[t.Name] = t
	}

	history := []models.Message{
		{Role: "user", Content: buildTaskPrompt(record, tools)},
	}

	for round := 0; round < o.opts.MaxRounds; round++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		response, err := o.generate(ctx, history, tools)
		if err != nil {
			return "", fmt.Errorf("provider error: %w", err)
		}

		switch response.Content.Type {
		case provider.ResponseTypeToolCall:
			if len(response.Content.ToolCalls) == 0 {
				history = append(history, models.Message{
					Role:    "user",
					Content: "Error: empty tool call list",
				})
				continue
			}

			history = append(history, models.Message{
				Role:      "model",
				ToolCalls: response.Content.ToolCalls,
			})

			toolResults := make([]models.ToolResult, 0, len(response.Content.ToolCalls))
			for _, toolCall := range response.Content.ToolCalls {
				result, err := o.executeToolCall(ctx, session, catalog, toolCall)
				if err != nil {
					return "", err
				}
				toolResults = append(toolResults, result)
			}

			history = append(history, models.Message{
				Role:        "function",
				ToolResults: toolResults,
			})

		case provider.ResponseTypeText:
			// Final answer: no further tool calls.
			return response.Content.Text, nil

		case provider.ResponseTypeRefusal:
			return "", fmt.Errorf("model refused to generate: %s", response.Content.RefusalReason)

		default:
			history = append(history, models.Message{
				Role:    "user",
				Content: fmt.Sprintf("Error: unknown response type %v", response.Content.Type),
			})
		}
	}

	return "", fmt.Errorf("%w: %d rounds", ErrRoundLimit, o.opts.MaxRounds)
}

// generate submits the conversation to the model under the per-call timeout.
func (o *Orchestrator) generate(ctx context.Context, history []models.Message, tools []provider.ToolDefinition) (*provider.GenerateResponse, error) {
	callCtx := ctx
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}

	temp := o.opts.Temperature
	req := &provider.GenerateRequest{
		History: history,
		Config:  &provider.GenerateConfig{Temperature: &temp},
		Tools:   tools,
	}
	return o.provider.Generate(callCtx, req)
}

// executeToolCall validates and dispatches one invocation. Invocation-level
// failures (unknown tool, schema mismatch, adapter error) come back as a
// failed ToolResult for the model to see; only transport failures return a
// non-nil error.
func (o *Orchestrator) executeToolCall(ctx context.Context, session Session, catalog map[string]provider.ToolDefinition, toolCall models.ToolCall) (models.ToolResult, error) {
	descriptor, exists := catalog[toolCall.Name]
	if !exists {
		// Unknown name is a client-side error, never forwarded to the registry.
		return models.ToolResult{
			Name:  toolCall.Name,
			Error: fmt.Sprintf("unknown tool '%s'", toolCall.Name),
		}, nil
	}

	if err := validateArgs(descriptor, toolCall.Args); err != nil {
		return models.ToolResult{
			Name:  toolCall.Name,
			Error: fmt.Sprintf("invalid arguments: %v", err),
		}, nil
	}

	log.Debug().Str("tool", toolCall.Name).Interface("args", toolCall.Args).Msg("dispatching tool call")

	callCtx := ctx
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}

	result, err := session.CallTool(callCtx, toolCall.Name, toolCall.Args)
	if err != nil {
		// Transport-level disconnect mid-call: no silent resume.
		return models.ToolResult{}, fmt.Errorf("%w: call %s: %v", ErrSession, toolCall.Name, err)
	}

	return result, nil
}

// validateArgs checks the invocation against the descriptor's schema:
// required keys present, primitive types matching.
func validateArgs(descriptor provider.ToolDefinition, args map[string]any) error {
	if descriptor.Parameters == nil {
		return nil
	}

	for _, required := range descriptor.Parameters.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("missing required argument %q", required)
		}
	}

	for name, value := range args {
		prop, ok := descriptor.Parameters.Properties[name]
		if !ok {
			return fmt.Errorf("unexpected argument %q", name)
		}
		if value == nil {
			continue
		}
		if err := checkType(prop.Type, value); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}

	return nil
}

func checkType(schemaType string, value any) error {
	switch schemaType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "integer":
		switch v := value.(type) {
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
		case int, int32, int64:
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	}
	return nil
}

// call runs fn under the per-call timeout.
func (o *Orchestrator) call(ctx context.Context, fn func(context.Context) error) error {
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}
	return fn(ctx)
}
