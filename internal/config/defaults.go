package config

import "time"

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Extractor ExtractorConfig `json:"extractor"`
	Agent     AgentConfig     `json:"agent"`
	Registry  RegistryConfig  `json:"registry"`
}

type ExtractorConfig struct {
	// Model used for the vision extraction call
	Model string `json:"model"` // Default: "gemini-2.5-flash"
}

type AgentConfig struct {
	// Model driving the tool-calling loop
	Model string `json:"model"` // Default: "gemini-2.5-flash"

	// Sampling temperature for agent decisions
	Temperature float32 `json:"temperature"` // Default: 0.125

	// Upper bound on tool-call rounds per run
	MaxRounds int `json:"max_rounds"` // Default: 8

	// Timeout applied to each outbound model or tool call, in seconds
	CallTimeoutSeconds int `json:"call_timeout_seconds"` // Default: 60
}

type RegistryConfig struct {
	// Base URL of the tool server
	Address string `json:"address"` // Default: "http://127.0.0.1:8050"

	// SSE endpoint path on the tool server
	SSEPath string `json:"sse_path"` // Default: "/sse"

	// Listen address used by the tool server binary
	ListenAddress string `json:"listen_address"` // Default: ":8050"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			Model: "gemini-2.5-flash",
		},
		Agent: AgentConfig{
			Model:              "gemini-2.5-flash",
			Temperature:        0.125,
			MaxRounds:          8,
			CallTimeoutSeconds: 60,
		},
		Registry: RegistryConfig{
			Address:       "http://127.0.0.1:8050",
			SSEPath:       "/sse",
			ListenAddress: ":8050",
		},
	}
}

// CallTimeout returns the per-call timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Agent.CallTimeoutSeconds) * time.Second
}

// SSEURL returns the full SSE endpoint URL for the registry client.
func (c *Config) SSEURL() string {
	return c.Registry.Address + c.Registry.SSEPath
}
