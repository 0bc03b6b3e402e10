package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/helper/content"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
)

// WriteFileRequest is the argument object of write_file.
type WriteFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (r *WriteFileRequest) Validate(tctx tool.Context) error {
	if r.Path == "" {
		return ErrPathRequired
	}
	if _, err := workspace.NewResolver(tctx.WorkspaceRoot).Abs(r.Path); err != nil {
		return fmt.Errorf("%s: %w", r.Path, err)
	}
	return nil
}

var writeFileParams = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"path":    {Type: tool.TypeString, Description: "File path, relative to the workspace root or absolute inside it"},
		"content": {Type: tool.TypeString, Description: "Full new content of the file"},
	},
	Required: []string{"path", "content"},
}

// NewWriteFile creates the write_file tool.
func NewWriteFile(cfg *config.Config) tool.Tool {
	maxSize := cfg.Tools.MaxFileSize
	return tool.NewBase[WriteFileRequest]("write_file",
		"Create or overwrite a file in the workspace. Parent directories are created as needed.",
		writeFileParams,
		risk.ReadWrite,
		func(ctx context.Context, tctx tool.Context, req WriteFileRequest) (string, error) {
			return writeFile(tctx, req, maxSize)
		},
	)
}

func writeFile(tctx tool.Context, req WriteFileRequest, maxSize int64) (string, error) {
	r := workspace.NewResolver(tctx.WorkspaceRoot)
	abs, err := r.Abs(req.Path)
	if err != nil {
		return "", err
	}
	rel, err := r.Rel(abs)
	if err != nil {
		return "", err
	}

	data := []byte(req.Content)
	if int64(len(data)) > maxSize {
		return "", &TooLargeError{Path: rel, Size: int64(len(data)), Limit: maxSize}
	}
	if content.IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinaryFile, rel)
	}

	perm := os.FileMode(0o644)
	info, err := os.Stat(abs)
	switch {
	case err == nil && info.IsDir():
		return "", fmt.Errorf("%w: %s", ErrIsDirectory, rel)
	case err == nil:
		perm = info.Mode().Perm()
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", &WriteError{Path: rel, Cause: err}
	}
	if err := writeFileAtomic(abs, data, perm); err != nil {
		return "", &WriteError{Path: rel, Cause: err}
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(data), rel), nil
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	needsCleanup := true
	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
		}
		if needsCleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		tmpFile = nil
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	needsCleanup = false
	return nil
}
