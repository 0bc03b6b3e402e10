package config

import (
	"fmt"
	"slices"

	"github.com/Cyclone1070/agentgate/internal/permission"
)

// KnownProviders lists the backend names accepted in provider.name.
var KnownProviders = []string{"gemini", "anthropic", "openai"}

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Provider validation
	if !slices.Contains(KnownProviders, c.Provider.Name) {
		errs = append(errs, fmt.Sprintf("provider.name %q must be one of %v", c.Provider.Name, KnownProviders))
	}
	if c.Provider.MaxOutputTokens < 1 {
		errs = append(errs, "provider.max_output_tokens must be >= 1")
	}
	if c.Provider.RetryAttempts < 1 {
		errs = append(errs, "provider.retry_attempts must be >= 1")
	}
	if c.Provider.RetryBaseDelayMs < 0 {
		errs = append(errs, "provider.retry_base_delay_ms must be >= 0")
	}
	if t := c.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, "provider.temperature must be between 0 and 2")
	}

	// Permission validation
	if _, err := permission.ParseMode(c.Permission.Mode); err != nil {
		errs = append(errs, "permission.mode: "+err.Error())
	}
	if _, err := permission.ParseScope(c.Permission.RememberScope); err != nil {
		errs = append(errs, "permission.remember_scope: "+err.Error())
	}
	if c.Permission.MaxRememberedPerSession < 1 {
		errs = append(errs, "permission.max_remembered_per_session must be >= 1")
	}
	if c.Permission.HistorySize < 1 {
		errs = append(errs, "permission.history_size must be >= 1")
	}
	for name, class := range c.Permission.RiskOverrides {
		if !class.Valid() {
			errs = append(errs, fmt.Sprintf("permission.risk_overrides[%s] is not a valid risk class", name))
		}
	}

	// Workflow validation
	if c.Workflow.MaxIterations < 1 {
		errs = append(errs, "workflow.max_iterations must be >= 1")
	}
	if c.Workflow.MaxToolCalls < 1 {
		errs = append(errs, "workflow.max_tool_calls must be >= 1")
	}

	// Tools validation
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.DefaultListDirectoryLimit < 1 {
		errs = append(errs, "tools.default_list_directory_limit must be >= 1")
	}
	if c.Tools.MaxListDirectoryLimit < 1 {
		errs = append(errs, "tools.max_list_directory_limit must be >= 1")
	}
	if c.Tools.DefaultMaxCommandOutputSize < 1 {
		errs = append(errs, "tools.default_max_command_output_size must be >= 1")
	}
	if c.Tools.DefaultShellTimeout < 1 {
		errs = append(errs, "tools.default_shell_timeout must be >= 1")
	}

	// Semantic validation: Default <= Max constraints
	if c.Tools.DefaultListDirectoryLimit > c.Tools.MaxListDirectoryLimit {
		errs = append(errs, "tools.default_list_directory_limit must be <= tools.max_list_directory_limit")
	}

	// Logging validation
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be json or console", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
