package shell

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
)

func setup(t *testing.T) (tool.Tool, tool.Context) {
	t.Helper()
	root, err := workspace.CanonicaliseRoot(t.TempDir())
	require.NoError(t, err)
	return New(config.DefaultConfig()), tool.Context{ToolCallID: "c1", WorkspaceRoot: root}
}

func runTool(t *testing.T, sh tool.Tool, tctx tool.Context, args string) tool.Result {
	t.Helper()
	res, err := sh.Execute(context.Background(), json.RawMessage(args), tctx)
	require.NoError(t, err)
	return res
}

func TestShell_Declaration(t *testing.T) {
	sh, _ := setup(t)
	assert.Equal(t, "shell", sh.Name())
	assert.Equal(t, risk.Critical, sh.Risk())
	assert.Equal(t, []string{"command"}, sh.Declaration().Parameters.Required)
}

func TestShell_Success(t *testing.T) {
	sh, tctx := setup(t)

	res := runTool(t, sh, tctx, `{"command":"echo hello; echo oops >&2"}`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "exit code: 0\nstdout:\nhello\nstderr:\noops", res.Output)
}

func TestShell_WorkingDirAndEnv(t *testing.T) {
	sh, tctx := setup(t)
	require.NoError(t, os.Mkdir(filepath.Join(tctx.WorkspaceRoot, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tctx.WorkspaceRoot, ".env"), []byte("FROM_FILE=file\nOVERRIDE=file\n"), 0o644))

	res := runTool(t, sh, tctx, `{"command":"pwd; echo $FROM_FILE $OVERRIDE","working_dir":"sub","env_files":[".env"],"env":{"OVERRIDE":"req"}}`)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, filepath.Join(tctx.WorkspaceRoot, "sub"))
	assert.Contains(t, res.Output, "file req")
}

func TestShell_NonZeroExitFails(t *testing.T) {
	sh, tctx := setup(t)

	res := runTool(t, sh, tctx, `{"command":"echo partial; exit 3"}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "exit code: 3")
	assert.Contains(t, res.Error, "partial")
	assert.True(t, strings.HasPrefix(res.LLMContent(), "Error: exit code: 3"))
}

func TestShell_Timeout(t *testing.T) {
	sh, tctx := setup(t)

	start := time.Now()
	res := runTool(t, sh, tctx, `{"command":"sleep 5","timeout_seconds":1}`)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, ErrTimeout.Error())
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestShell_Cancelled(t *testing.T) {
	sh, tctx := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := sh.Execute(ctx, json.RawMessage(`{"command":"sleep 5"}`), tctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShell_OutputCap(t *testing.T) {
	root, err := workspace.CanonicaliseRoot(t.TempDir())
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Tools.DefaultMaxCommandOutputSize = 10
	sh := New(cfg)

	res := runTool(t, sh, tool.Context{WorkspaceRoot: root}, `{"command":"printf 'abcdefghijklmnopqrstuvwxyz'"}`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "exit code: 0\nstdout:\nabcdefghij\n[output truncated]", res.Output)
}

func TestShell_Validate(t *testing.T) {
	sh, tctx := setup(t)
	ctx := context.Background()

	v := sh.Validate(ctx, json.RawMessage(`{"command":"  "}`), tctx)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, ErrCommandRequired.Error())

	v = sh.Validate(ctx, json.RawMessage(`{"command":"ls","working_dir":"../..","timeout_seconds":-1}`), tctx)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 2)

	v = sh.Validate(ctx, json.RawMessage(`{"command":"ls","env_files":["/etc/environment"]}`), tctx)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, workspace.ErrOutsideWorkspace.Error())

	v = sh.Validate(ctx, json.RawMessage(`{"command":"ls -la"}`), tctx)
	assert.True(t, v.Valid)
}

func TestCollector_Binary(t *testing.T) {
	c := newCollector(100)
	_, _ = c.Write([]byte{'a', 0, 'b'})
	_, _ = c.Write([]byte("more"))
	assert.Equal(t, "[binary content]", c.String())
	assert.True(t, c.Truncated())
}
