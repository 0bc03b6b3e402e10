package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/helper/content"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
)

// ReadFileRequest is the argument object of read_file.
type ReadFileRequest struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset,omitempty"`
	Limit  int64  `json:"limit,omitempty"`
}

func (r *ReadFileRequest) Validate(tctx tool.Context) error {
	var errs []error
	if r.Path == "" {
		errs = append(errs, ErrPathRequired)
	} else if _, err := workspace.NewResolver(tctx.WorkspaceRoot).Abs(r.Path); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Path, err))
	}
	if r.Offset < 0 {
		errs = append(errs, ErrInvalidOffset)
	}
	if r.Limit < 0 {
		errs = append(errs, ErrInvalidLimit)
	}
	return errors.Join(errs...)
}

var readFileParams = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"path":   {Type: tool.TypeString, Description: "File path, relative to the workspace root or absolute inside it"},
		"offset": {Type: tool.TypeInteger, Description: "Byte offset to start reading from (default 0)"},
		"limit":  {Type: tool.TypeInteger, Description: "Maximum number of bytes to read (default: whole file)"},
	},
	Required: []string{"path"},
}

// NewReadFile creates the read_file tool.
func NewReadFile(cfg *config.Config) tool.Tool {
	maxSize := cfg.Tools.MaxFileSize
	return tool.NewBase[ReadFileRequest]("read_file",
		"Read a text file from the workspace. Supports partial reads with offset and limit.",
		readFileParams,
		risk.ReadOnly,
		func(ctx context.Context, tctx tool.Context, req ReadFileRequest) (string, error) {
			return readFile(tctx, req, maxSize)
		},
	)
}

func readFile(tctx tool.Context, req ReadFileRequest, maxSize int64) (string, error) {
	abs, err := workspace.NewResolver(tctx.WorkspaceRoot).Abs(req.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFileMissing, req.Path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrIsDirectory, req.Path)
	}

	limit := req.Limit
	if limit == 0 {
		if info.Size()-req.Offset > maxSize {
			return "", &TooLargeError{Path: req.Path, Size: info.Size(), Limit: maxSize}
		}
		limit = maxSize
	}
	limit = min(limit, maxSize)

	data, err := readRange(abs, req.Offset, limit)
	if err != nil {
		return "", err
	}
	if content.IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinaryFile, req.Path)
	}
	return string(data), nil
}

// readRange reads up to limit bytes starting at offset. An offset past the
// end yields no content.
func readRange(path string, offset, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return io.ReadAll(io.LimitReader(f, limit))
}
