package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/tool/helper/content"
	"github.com/Cyclone1070/agentgate/internal/tool/workspace"
)

const (
	defaultSearchLimit = 100
	maxSearchLimit     = 1000
	maxSearchMatches   = 5000
	maxMatchLineLength = 500
	binarySniffSize    = 8000
)

// SearchContentRequest is the argument object of search_content.
type SearchContentRequest struct {
	Query          string `json:"query"`
	Path           string `json:"path,omitempty"`
	CaseSensitive  bool   `json:"case_sensitive,omitempty"`
	IncludeIgnored bool   `json:"include_ignored,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

func (r *SearchContentRequest) Validate(tctx tool.Context) error {
	var errs []error
	if r.Query == "" {
		errs = append(errs, ErrQueryRequired)
	} else if _, err := r.compile(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidPattern, err))
	}
	if r.Path == "" {
		r.Path = "."
	}
	if _, err := workspace.NewResolver(tctx.WorkspaceRoot).Abs(r.Path); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Path, err))
	}
	if r.Offset < 0 {
		errs = append(errs, ErrInvalidOffset)
	}
	if r.Limit < 0 {
		errs = append(errs, ErrInvalidLimit)
	} else if r.Limit > maxSearchLimit {
		errs = append(errs, fmt.Errorf("%w: %d > %d", ErrLimitExceeded, r.Limit, maxSearchLimit))
	}
	return errors.Join(errs...)
}

func (r *SearchContentRequest) compile() (*regexp.Regexp, error) {
	q := r.Query
	if !r.CaseSensitive {
		q = "(?i)" + q
	}
	return regexp.Compile(q)
}

var searchContentParams = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"query":           {Type: tool.TypeString, Description: "Regular expression (RE2 syntax) to search for"},
		"path":            {Type: tool.TypeString, Description: "Directory to search (default: workspace root)"},
		"case_sensitive":  {Type: tool.TypeBoolean, Description: "Match case (default false)"},
		"include_ignored": {Type: tool.TypeBoolean, Description: "Also search files matched by .gitignore"},
		"offset":          {Type: tool.TypeInteger, Description: "Number of matches to skip"},
		"limit":           {Type: tool.TypeInteger, Description: "Maximum number of matches to return (default 100)"},
	},
	Required: []string{"query"},
}

type match struct {
	file string
	line int
	text string
}

type searcher struct {
	maxFileSize      int64
	respectGitignore bool
}

// NewSearchContent creates the search_content tool.
func NewSearchContent(cfg *config.Config) tool.Tool {
	s := &searcher{
		maxFileSize:      cfg.Tools.MaxFileSize,
		respectGitignore: cfg.Tools.RespectGitignore,
	}
	return tool.NewBase[SearchContentRequest]("search_content",
		"Search file contents in the workspace with a regular expression. Returns file:line: text matches sorted by file and line. Binary and ignored files are skipped.",
		searchContentParams,
		risk.ReadOnly,
		s.run,
	)
}

func (s *searcher) run(ctx context.Context, tctx tool.Context, req SearchContentRequest) (string, error) {
	re, err := req.compile()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	r := workspace.NewResolver(tctx.WorkspaceRoot)
	abs, err := r.Abs(req.Path)
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
	if s.respectGitignore && !req.IncludeIgnored {
		if ignore, err = loadIgnoreMatcher(r.Root()); err != nil {
			return "", fmt.Errorf("failed to read .gitignore: %w", err)
		}
	}

	w := &walker{ctx: ctx, root: r.Root(), ignore: ignore, maxDepth: -1}
	if err := w.walk(abs, 0); err != nil {
		return "", err
	}

	var matches []match
	capped := w.capped
	for _, e := range w.entries {
		if e.IsDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		found, err := s.searchFile(filepath.Join(r.Root(), filepath.FromSlash(e.RelativePath)), e.RelativePath, re, maxSearchMatches-len(matches))
		if err != nil {
			continue
		}
		matches = append(matches, found...)
		if len(matches) >= maxSearchMatches {
			capped = true
			break
		}
	}

	// Walk order is per-directory, so sort for a stable file:line order.
	sortMatches(matches)
	return formatMatches(req.Query, matches, req.Offset, limit, capped), nil
}

// searchFile returns up to budget matches in one file. Oversized, binary and
// unreadable files yield nothing.
func (s *searcher) searchFile(abs, rel string, re *regexp.Regexp, budget int) ([]match, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() || info.Size() > s.maxFileSize {
		return nil, err
	}

	br := bufio.NewReader(f)
	head, err := br.Peek(binarySniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	if content.IsBinary(head) {
		return nil, nil
	}

	var out []match
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), int(min(s.maxFileSize, 16*1024*1024))+1)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if !re.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(line)
		if len(line) > maxMatchLineLength {
			line = line[:maxMatchLineLength] + "...[truncated]"
		}
		out = append(out, match{file: rel, line: n, text: line})
		if len(out) >= budget {
			break
		}
	}
	return out, sc.Err()
}

func sortMatches(m []match) {
	slices.SortFunc(m, func(a, b match) int {
		if a.file != b.file {
			return strings.Compare(a.file, b.file)
		}
		return a.line - b.line
	})
}

func formatMatches(query string, matches []match, offset, limit int, capped bool) string {
	total := len(matches)
	if total == 0 {
		return fmt.Sprintf("No matches for %q", query)
	}
	start := min(offset, total)
	end := min(start+limit, total)

	var b strings.Builder
	fmt.Fprintf(&b, "%d matches for %q\n", total, query)
	for _, m := range matches[start:end] {
		fmt.Fprintf(&b, "%s:%d: %s\n", m.file, m.line, m.text)
	}
	switch {
	case capped:
		fmt.Fprintf(&b, "[results capped at %d matches]\n", maxSearchMatches)
	case end < total:
		fmt.Fprintf(&b, "[page limit reached, more results at offset %d]\n", end)
	}
	return strings.TrimRight(b.String(), "\n")
}
