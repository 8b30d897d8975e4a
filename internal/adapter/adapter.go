// Package adapter holds the server-side tool implementations. Every adapter
// wraps a fallible external call in the uniform tool contract: failures of
// any kind become a failed Result, never a panic past the adapter boundary.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
)

// Result is the uniform success/failure envelope returned by any adapter.
type Result struct {
	Success bool
	Payload string // JSON text when Success
	Error   string // human-readable reason when !Success
}

// Tool represents one remote capability exposed by the registry.
// Implementations must be stateless and safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description
	Description() string

	// Definition returns the structured tool definition advertised to clients
	Definition() provider.ToolDefinition

	// Invoke runs the tool with the given arguments. It never panics past
	// this boundary; all failures surface in the Result.
	Invoke(ctx context.Context, args map[string]any) Result
}

// Validator is an interface for request types that support validation
type Validator interface {
	Validate() error
}

// Executor is the typed implementation behind an adapter. The returned value
// is marshaled to JSON as the result payload.
type Executor[Req any] func(ctx context.Context, req Req) (any, error)

// BaseAdapter provides common adapter functionality using generics,
// centralizing argument decoding (mapstructure), validation, execution,
// payload marshaling, and panic recovery.
type BaseAdapter[Req any] struct {
	name        string
	description string
	definition  provider.ToolDefinition
	executor    Executor[Req]
}

// NewBaseAdapter creates a new base adapter with the given configuration.
func NewBaseAdapter[Req any](
	name string,
	description string,
	paramSchema *provider.ParameterSchema,
	executor Executor[Req],
) *BaseAdapter[Req] {
	return &BaseAdapter[Req]{
		name:        name,
		description: description,
		definition: provider.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  paramSchema,
		},
		executor: executor,
	}
}

// Name implements Tool
func (b *BaseAdapter[Req]) Name() string {
	return b.name
}

// Description implements Tool
func (b *BaseAdapter[Req]) Description() string {
	return b.description
}

// Definition implements Tool
func (b *BaseAdapter[Req]) Definition() provider.ToolDefinition {
	return b.definition
}

// Invoke implements Tool.
//
// This method:
// 1. Decodes the args map into a typed request using mapstructure
// 2. Validates the request if it implements Validator
// 3. Calls the executor with the typed request
// 4. Marshals the response payload to JSON
//
// A panic anywhere below is recovered and converted into a failed Result.
func (b *BaseAdapter[Req]) Invoke(ctx context.Context, args map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", b.name).Interface("panic", r).Msg("adapter panic recovered")
			result = Result{Error: fmt.Sprintf("%s: internal error: %v", b.name, r)}
		}
	}()

	var req Req
	if err := mapstructure.Decode(args, &req); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}
	}

	if v, ok := any(req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return Result{Error: fmt.Sprintf("%s validation failed: %v", b.name, err)}
		}
	}

	payload, err := b.executor(ctx, req)
	if err != nil {
		return Result{Error: err.Error()}
	}

	bytes, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to marshal response: %v", err)}
	}

	return Result{Success: true, Payload: string(bytes)}
}
