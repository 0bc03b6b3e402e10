package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
)

// LineReader reads lines on demand. A read abandoned by a cancelled context
// keeps running and its line goes to the next caller, so the underlying
// reader is only ever read by one goroutine and only while someone waits.
type LineReader struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	pending bool
	results chan lineResult
}

type lineResult struct {
	text string
	err  error
}

func NewLineReader(in io.Reader) *LineReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &LineReader{scanner: s, results: make(chan lineResult, 1)}
}

// ReadLine returns the next line without its terminator, or io.EOF.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	r.mu.Lock()
	if !r.pending {
		r.pending = true
		go r.scan()
	}
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-r.results:
		r.mu.Lock()
		r.pending = false
		r.mu.Unlock()
		return res.text, res.err
	}
}

func (r *LineReader) scan() {
	if r.scanner.Scan() {
		r.results <- lineResult{text: r.scanner.Text()}
		return
	}
	err := r.scanner.Err()
	if err == nil {
		err = io.EOF
	}
	r.results <- lineResult{err: err}
}

// LinePrompter asks for permission with plain line input. It is used when
// stdin is not a terminal.
type LinePrompter struct {
	console *Console
	reader  *LineReader
}

func NewLinePrompter(console *Console, reader *LineReader) *LinePrompter {
	return &LinePrompter{console: console, reader: reader}
}

// Prompt implements permission.Prompter. Unrecognized answers are asked
// again; end of input denies.
func (p *LinePrompter) Prompt(ctx context.Context, call provider.ToolCall, class risk.Class, in permission.Inspection) (permission.Decision, bool, error) {
	p.console.mu.Lock()
	defer p.console.mu.Unlock()

	fmt.Fprintln(p.console.out, permissionBody(call, class, in))
	for {
		fmt.Fprint(p.console.out, "[y] once  [a] always  [n] deny  [d] always deny > ")
		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			fmt.Fprintln(p.console.out)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return permission.Deny, false, ctxErr
			}
			return permission.Deny, false, nil
		}
		if c, ok := choiceForKey(strings.ToLower(strings.TrimSpace(line))); ok {
			return c.decision, c.remember, nil
		}
		fmt.Fprintln(p.console.out, "please answer y, a, n or d")
	}
}
