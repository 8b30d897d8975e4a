package config

import (
	"fmt"
	"strings"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Extractor.Model) == "" {
		errs = append(errs, "extractor.model must not be empty")
	}

	if strings.TrimSpace(c.Agent.Model) == "" {
		errs = append(errs, "agent.model must not be empty")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, "agent.temperature must be in [0, 2]")
	}
	if c.Agent.MaxRounds < 1 {
		errs = append(errs, "agent.max_rounds must be >= 1")
	}
	if c.Agent.CallTimeoutSeconds < 1 {
		errs = append(errs, "agent.call_timeout_seconds must be >= 1")
	}

	if strings.TrimSpace(c.Registry.Address) == "" {
		errs = append(errs, "registry.address must not be empty")
	}
	if !strings.HasPrefix(c.Registry.SSEPath, "/") {
		errs = append(errs, "registry.sse_path must start with '/'")
	}
	if strings.TrimSpace(c.Registry.ListenAddress) == "" {
		errs = append(errs, "registry.listen_address must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
