package gemini

import (
	"context"
	"sync"

	provider "github.com/ghostequity/ghostequity/internal/provider/models"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client    GeminiClient
	modelName string
	mu        sync.RWMutex
}

// New creates a new GeminiProvider with the specified client and model.
func New(client GeminiClient, modelName string) *GeminiProvider {
	return &GeminiProvider{
		client:    client,
		modelName: modelName,
	}
}

// Generate sends a request to the Gemini API and returns the response.
func (p *GeminiProvider) Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	p.mu.RLock()
	model := p.modelName
	p.mu.RUnlock()

	// Convert internal types to Gemini types
	contents := toGeminiContents(req.Prompt, req.History)
	config := toGeminiConfig(req.Config)

	// Add tools if defined
	if len(req.Tools) > 0 {
		config.Tools = toGeminiTools(req.Tools)
	}

	// Call Gemini API
	resp, err := p.client.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}

	// Convert response
	return fromGeminiResponse(resp, model)
}

// GetModel returns the currently active model name.
func (p *GeminiProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelName
}
