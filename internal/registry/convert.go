package registry

import (
	provider "github.com/ghostequity/ghostequity/internal/provider/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// fromMCPTool converts an MCP tool advertisement into a provider descriptor.
func fromMCPTool(tool mcp.Tool) provider.ToolDefinition {
	def := provider.ToolDefinition{
		Name:        tool.Name,
		Description: tool.Description,
	}

	if len(tool.InputSchema.Properties) > 0 || len(tool.InputSchema.Required) > 0 {
		def.Parameters = fromMCPSchema(tool.InputSchema)
	}

	return def
}

// fromMCPSchema converts the JSON-schema-shaped input declaration into the
// provider's parameter schema. Unknown or malformed property entries degrade
// to plain strings rather than failing discovery.
func fromMCPSchema(schema mcp.ToolInputSchema) *provider.ParameterSchema {
	params := &provider.ParameterSchema{
		Type:       "object",
		Properties: make(map[string]provider.PropertySchema, len(schema.Properties)),
		Required:   schema.Required,
	}

	for name, raw := range schema.Properties {
		params.Properties[name] = fromMCPProperty(raw)
	}

	return params
}

func fromMCPProperty(raw any) provider.PropertySchema {
	prop := provider.PropertySchema{Type: "string"}

	m, ok := raw.(map[string]any)
	if !ok {
		return prop
	}

	if t, ok := m["type"].(string); ok && t != "" {
		prop.Type = t
	}
	if d, ok := m["description"].(string); ok {
		prop.Description = d
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				prop.Enum = append(prop.Enum, s)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		itemProp := fromMCPProperty(items)
		prop.Items = &itemProp
	}

	return prop
}
