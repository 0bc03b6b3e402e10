package shell

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// gracePeriod is how long an interrupted command gets before it is killed.
const gracePeriod = 2 * time.Second

// execResult is the outcome of one command.
type execResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
}

// runCommand runs command through sh -c in dir. On timeout the process is
// interrupted, then killed after gracePeriod, and ErrTimeout is returned.
// Cancellation of ctx returns ctx.Err(). A non-zero exit is not an error.
func runCommand(ctx context.Context, command, dir string, env []string, timeout time.Duration, maxBytes int) (execResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = gracePeriod

	stdout := newCollector(maxBytes)
	stderr := newCollector(maxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := execResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode(err),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}

	switch {
	case ctx.Err() != nil:
		return res, ctx.Err()
	case runCtx.Err() != nil:
		res.ExitCode = -1
		return res, ErrTimeout
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return res, err
	}
	return res, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
