// Package shell provides the shell tool, which runs a command line with
// sh -c inside the workspace.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
)

// Request is the argument object of the shell tool.
type Request struct {
	Command        string            `json:"command"`
	WorkingDir     string            `json:"working_dir,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	EnvFiles       []string          `json:"env_files,omitempty"`
}

func (r *Request) Validate(tctx tool.Context) error {
	var errs []error
	if strings.TrimSpace(r.Command) == "" {
		errs = append(errs, ErrCommandRequired)
	}
	if r.TimeoutSeconds < 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	resolver := workspace.NewResolver(tctx.WorkspaceRoot)
	if r.WorkingDir != "" {
		if _, err := resolver.Abs(r.WorkingDir); err != nil {
			errs = append(errs, fmt.Errorf("working_dir %s: %w", r.WorkingDir, err))
		}
	}
	for _, f := range r.EnvFiles {
		if _, err := resolver.Abs(f); err != nil {
			errs = append(errs, fmt.Errorf("env file %s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

var params = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"command":         {Type: tool.TypeString, Description: "Command line, run with sh -c"},
		"working_dir":     {Type: tool.TypeString, Description: "Directory to run in (default: workspace root)"},
		"timeout_seconds": {Type: tool.TypeInteger, Description: "Timeout in seconds (default from config)"},
		"env":             {Type: tool.TypeObject, Description: "Extra environment variables"},
		"env_files":       {Type: tool.TypeArray, Items: &tool.Schema{Type: tool.TypeString}, Description: "Workspace .env files to load before env"},
	},
	Required: []string{"command"},
}

type runner struct {
	defaultTimeout time.Duration
	maxOutput      int
}

// New creates the shell tool. Its risk is Critical.
func New(cfg *config.Config) tool.Tool {
	r := &runner{
		defaultTimeout: time.Duration(cfg.Tools.DefaultShellTimeout) * time.Second,
		maxOutput:      int(cfg.Tools.DefaultMaxCommandOutputSize),
	}
	return tool.NewBase[Request]("shell",
		"Run a shell command in the workspace and return its exit code, stdout and stderr.",
		params,
		risk.Critical,
		r.run,
	)
}

func (r *runner) run(ctx context.Context, tctx tool.Context, req Request) (string, error) {
	resolver := workspace.NewResolver(tctx.WorkspaceRoot)
	dir := req.WorkingDir
	if dir == "" {
		dir = "."
	}
	wdAbs, err := resolver.Abs(dir)
	if err != nil {
		return "", err
	}

	env := os.Environ()
	if len(req.EnvFiles) > 0 {
		files := make([]string, 0, len(req.EnvFiles))
		for _, f := range req.EnvFiles {
			abs, err := resolver.Abs(f)
			if err != nil {
				return "", err
			}
			files = append(files, abs)
		}
		vars, err := godotenv.Read(files...)
		if err != nil {
			return "", fmt.Errorf("failed to read env files: %w", err)
		}
		env = appendEnv(env, vars)
	}
	// Request env overrides everything.
	env = appendEnv(env, req.Env)

	timeout := r.defaultTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	res, err := runCommand(ctx, req.Command, wdAbs, env, timeout, r.maxOutput)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return "", fmt.Errorf("%w after %s\n%s", ErrTimeout, timeout, format(res))
		}
		return "", err
	}
	if res.ExitCode != 0 {
		return "", errors.New(format(res))
	}
	return format(res), nil
}

func appendEnv(env []string, vars map[string]string) []string {
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env
}

func format(res execResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "exit code: %d\n", res.ExitCode)
	if res.Stdout != "" {
		fmt.Fprintf(&b, "stdout:\n%s\n", strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "stderr:\n%s\n", strings.TrimRight(res.Stderr, "\n"))
	}
	if res.Truncated {
		b.WriteString("[output truncated]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
