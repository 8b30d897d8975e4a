package models

import (
	"github.com/ghostequity/ghostequity/internal/orchestrator/models"
)

// GenerateRequest encapsulates all parameters for a generation request.
type GenerateRequest struct {
	// Prompt is the user's input for this turn
	Prompt string

	// History contains the conversation history
	History []models.Message

	// Config contains optional generation parameters
	Config *GenerateConfig

	// Tools contains tool definitions for native tool calling
	Tools []ToolDefinition
}

// GenerateConfig contains optional generation parameters.
// All fields are pointers to distinguish between "not set" and "zero value".
type GenerateConfig struct {
	Temperature *float32
}

// GenerateResponse contains the model's response and metadata.
type GenerateResponse struct {
	// Content contains the generated response
	Content ResponseContent

	// Metadata contains information about the generation
	Metadata ResponseMetadata
}

// ResponseContent is a union type representing different response types.
// The orchestrator's control flow is a deterministic state machine over
// this tagged variant regardless of what produced the decision.
type ResponseContent struct {
	// Type indicates what the model produced
	Type ResponseType

	// For Type = ResponseTypeText
	Text string

	// For Type = ResponseTypeToolCall
	ToolCalls []models.ToolCall

	// For Type = ResponseTypeRefusal (safety block, policy violation)
	RefusalReason string
}

// ResponseType indicates the type of response from the model.
type ResponseType string

const (
	ResponseTypeText     ResponseType = "text"
	ResponseTypeToolCall ResponseType = "tool_call"
	ResponseTypeRefusal  ResponseType = "refusal"
)

// ResponseMetadata contains information about the generation.
type ResponseMetadata struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Model used
	ModelUsed string
}

// ToolDefinition defines a tool that the model can invoke.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *ParameterSchema // Pointer to allow nil (no params)
}

// ParameterSchema maps directly to standard JSON Schema.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

// PropertySchema defines a single parameter property.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
}
