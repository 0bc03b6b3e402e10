package config

import "github.com/Cyclone1070/agentgate/internal/permission/risk"

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Provider   ProviderConfig   `json:"provider" yaml:"provider"`
	Permission PermissionConfig `json:"permission" yaml:"permission"`
	Workflow   WorkflowConfig   `json:"workflow" yaml:"workflow"`
	Tools      ToolsConfig      `json:"tools" yaml:"tools"`
	Session    SessionConfig    `json:"session" yaml:"session"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `json:"telemetry" yaml:"telemetry"`
}

type ProviderConfig struct {
	Name            string   `json:"name" yaml:"name"`         // Default: "gemini"
	Model           string   `json:"model" yaml:"model"`       // Default: "" (backend default)
	BaseURL         string   `json:"base_url" yaml:"base_url"` // OpenAI-compatible endpoints only
	SystemPrompt    string   `json:"system_prompt" yaml:"system_prompt"`
	Temperature     *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxOutputTokens int      `json:"max_output_tokens" yaml:"max_output_tokens"` // Default: 8192

	RetryAttempts    int `json:"retry_attempts" yaml:"retry_attempts"`           // Default: 3
	RetryBaseDelayMs int `json:"retry_base_delay_ms" yaml:"retry_base_delay_ms"` // Default: 500
}

type PermissionConfig struct {
	Mode                    string `json:"mode" yaml:"mode"` // Default: "smart_approve"
	AutoApproveReadWrite    bool   `json:"auto_approve_read_write" yaml:"auto_approve_read_write"`
	RememberDecisions       bool   `json:"remember_decisions" yaml:"remember_decisions"`                 // Default: true
	MaxRememberedPerSession int    `json:"max_remembered_per_session" yaml:"max_remembered_per_session"` // Default: 100
	RememberScope           string `json:"remember_scope" yaml:"remember_scope"`                         // Default: "tool"
	HistorySize             int    `json:"history_size" yaml:"history_size"`                             // Default: 20

	// RiskOverrides replaces the declared risk of a tool by name.
	RiskOverrides map[string]risk.Class `json:"risk_overrides,omitempty" yaml:"risk_overrides,omitempty"`
}

type WorkflowConfig struct {
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"` // Default: 20
	MaxToolCalls  int `json:"max_tool_calls" yaml:"max_tool_calls"` // Default: 100
}

type ToolsConfig struct {
	// File Operations
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"` // Default: 20 * 1024 * 1024 (20MB)

	// Directory Listing
	DefaultListDirectoryLimit int  `json:"default_list_directory_limit" yaml:"default_list_directory_limit"` // Default: 1000
	MaxListDirectoryLimit     int  `json:"max_list_directory_limit" yaml:"max_list_directory_limit"`         // Default: 10000
	RespectGitignore          bool `json:"respect_gitignore" yaml:"respect_gitignore"`                       // Default: true

	// Command Execution
	EnableShell                 bool  `json:"enable_shell" yaml:"enable_shell"`                                       // Default: true
	DefaultMaxCommandOutputSize int64 `json:"default_max_command_output_size" yaml:"default_max_command_output_size"` // Default: 10 * 1024 * 1024 (10MB)
	DefaultShellTimeout         int   `json:"default_shell_timeout" yaml:"default_shell_timeout"`                     // Default: 600 (10 minutes, in seconds)
}

type SessionConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"` // Default: "" (~/.local/share/agentgate/sessions.db)
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // Default: "info"
	Format string `json:"format" yaml:"format"` // Default: "console"
}

type TelemetryConfig struct {
	Endpoint    string `json:"endpoint" yaml:"endpoint"` // Default: "" (disabled)
	ServiceName string `json:"service_name" yaml:"service_name"`
	Insecure    bool   `json:"insecure" yaml:"insecure"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:             "gemini",
			MaxOutputTokens:  8192,
			RetryAttempts:    3,
			RetryBaseDelayMs: 500,
		},
		Permission: PermissionConfig{
			Mode:                    "smart_approve",
			RememberDecisions:       true,
			MaxRememberedPerSession: 100,
			RememberScope:           "tool",
			HistorySize:             20,
		},
		Workflow: WorkflowConfig{
			MaxIterations: 20,
			MaxToolCalls:  100,
		},
		Tools: ToolsConfig{
			MaxFileSize:                 20 * 1024 * 1024,
			DefaultListDirectoryLimit:   1000,
			MaxListDirectoryLimit:       10000,
			RespectGitignore:            true,
			EnableShell:                 true,
			DefaultMaxCommandOutputSize: 10 * 1024 * 1024,
			DefaultShellTimeout:         600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "agentgate",
		},
	}
}
