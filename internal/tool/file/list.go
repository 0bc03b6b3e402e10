package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
)

// maxListResults caps how many entries a single walk collects before paging.
const maxListResults = 50000

// ListDirectoryRequest is the argument object of list_directory.
type ListDirectoryRequest struct {
	Path           string `json:"path,omitempty"`
	MaxDepth       int    `json:"max_depth,omitempty"`
	IncludeIgnored bool   `json:"include_ignored,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

func (r *ListDirectoryRequest) Validate(tctx tool.Context) error {
	var errs []error
	if r.Path == "" {
		r.Path = "."
	}
	if _, err := workspace.NewResolver(tctx.WorkspaceRoot).Abs(r.Path); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Path, err))
	}
	if r.MaxDepth < -1 {
		errs = append(errs, ErrInvalidDepth)
	}
	if r.Offset < 0 {
		errs = append(errs, ErrInvalidOffset)
	}
	if r.Limit < 0 {
		errs = append(errs, ErrInvalidLimit)
	}
	return errors.Join(errs...)
}

// DirectoryEntry represents a single entry in a directory listing.
type DirectoryEntry struct {
	RelativePath string
	IsDir        bool
}

var listDirectoryParams = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"path":            {Type: tool.TypeString, Description: "Directory to list (default: workspace root)"},
		"max_depth":       {Type: tool.TypeInteger, Description: "0 lists immediate children only, -1 is unlimited"},
		"include_ignored": {Type: tool.TypeBoolean, Description: "Include entries matched by .gitignore"},
		"offset":          {Type: tool.TypeInteger, Description: "Number of entries to skip"},
		"limit":           {Type: tool.TypeInteger, Description: "Maximum number of entries to return"},
	},
}

type lister struct {
	defaultLimit     int
	maxLimit         int
	respectGitignore bool
}

// NewListDirectory creates the list_directory tool.
func NewListDirectory(cfg *config.Config) tool.Tool {
	l := &lister{
		defaultLimit:     cfg.Tools.DefaultListDirectoryLimit,
		maxLimit:         cfg.Tools.MaxListDirectoryLimit,
		respectGitignore: cfg.Tools.RespectGitignore,
	}
	return tool.NewBase[ListDirectoryRequest]("list_directory",
		"List files and directories in the workspace, directories first. Entries ignored by .gitignore are hidden unless include_ignored is set.",
		listDirectoryParams,
		risk.ReadOnly,
		l.run,
	)
}

func (l *lister) run(ctx context.Context, tctx tool.Context, req ListDirectoryRequest) (string, error) {
	limit := l.defaultLimit
	if req.Limit != 0 {
		limit = req.Limit
	}
	if limit > l.maxLimit {
		return "", fmt.Errorf("%w: %d > %d", ErrLimitExceeded, limit, l.maxLimit)
	}

	r := workspace.NewResolver(tctx.WorkspaceRoot)
	abs, err := r.Abs(req.Path)
	if err != nil {
		return "", err
	}
	rel, err := r.Rel(abs)
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
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotADirectory, req.Path)
	}

	var ignore *ignoreMatcher
	if l.respectGitignore && !req.IncludeIgnored {
		if ignore, err = loadIgnoreMatcher(r.Root()); err != nil {
			return "", fmt.Errorf("failed to read .gitignore: %w", err)
		}
	}

	w := &walker{ctx: ctx, root: r.Root(), ignore: ignore, maxDepth: req.MaxDepth}
	if err := w.walk(abs, 0); err != nil {
		return "", err
	}

	sort.Slice(w.entries, func(i, j int) bool {
		if w.entries[i].IsDir != w.entries[j].IsDir {
			return w.entries[i].IsDir
		}
		return w.entries[i].RelativePath < w.entries[j].RelativePath
	})

	return formatListing(rel, w.entries, req.Offset, limit, w.capped), nil
}

type walker struct {
	ctx      context.Context
	root     string
	ignore   *ignoreMatcher
	maxDepth int
	entries  []DirectoryEntry
	capped   bool
}

// walk lists dir and, within maxDepth, its subdirectories. Symlinks are
// reported but never followed.
func (w *walker) walk(dir string, depth int) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, item := range items {
		if len(w.entries) >= maxListResults {
			w.capped = true
			return nil
		}
		abs := filepath.Join(dir, item.Name())
		rel, err := filepath.Rel(w.root, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		isDir := item.IsDir()

		if w.ignore.shouldIgnore(rel, isDir) {
			continue
		}
		w.entries = append(w.entries, DirectoryEntry{RelativePath: rel, IsDir: isDir})

		if isDir && (w.maxDepth < 0 || depth < w.maxDepth) {
			if err := w.walk(abs, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatListing(dir string, entries []DirectoryEntry, offset, limit int, capped bool) string {
	total := len(entries)
	start := min(offset, total)
	end := min(start+limit, total)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d entries)\n", path.Clean(dir), total)
	for _, e := range entries[start:end] {
		b.WriteString(e.RelativePath)
		if e.IsDir {
			b.WriteByte('/')
		}
		b.WriteByte('\n')
	}

	switch {
	case capped:
		fmt.Fprintf(&b, "[results capped at %d entries]\n", maxListResults)
	case end < total:
		fmt.Fprintf(&b, "[page limit reached, more results at offset %d]\n", end)
	}
	return strings.TrimRight(b.String(), "\n")
}
