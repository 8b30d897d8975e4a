package models

// Message represents a single turn in the conversation history
type Message struct {
	Role    string // "user", "model", "function"
	Content string

	// For model messages with tool calls
	ToolCalls []ToolCall

	// For function messages with tool results
	ToolResults []ToolResult
}

// ToolCall represents a structured tool invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult represents the outcome of one tool invocation.
// A failed invocation carries Error and an empty Content; the loop folds
// both shapes back into the conversation so the model can adapt.
type ToolResult struct {
	Name    string // Tool name, matches ToolCall.Name
	Content string // Result payload (JSON text from the tool server)
	Error   string // Error message if the invocation failed
}

// Failed reports whether the invocation produced an error.
func (r ToolResult) Failed() bool {
	return r.Error != ""
}
