// Package ui renders agent activity in the terminal and asks the user for
// permission decisions.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/workflow"
)

const resultPreview = 120

// Console serializes terminal output between the event printer and the
// permission prompters.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	md  *glamour.TermRenderer
}

// NewConsole writes to out. When markdown is true assistant text is rendered
// with glamour at the given width.
func NewConsole(out io.Writer, markdown bool, width int) *Console {
	c := &Console{out: out}
	if markdown {
		if width <= 0 {
			width = 80
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width-4),
		)
		if err == nil {
			c.md = r
		}
	}
	return c
}

// Render returns text as terminal markdown, or unchanged without a renderer.
func (c *Console) Render(text string) string {
	if c.md == nil {
		return text
	}
	out, err := c.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

// Handle prints one workflow event.
func (c *Console) Handle(ev workflow.Event) {
	var line string
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		if e.Round > 1 {
			line = dimStyle.Render(fmt.Sprintf("… round %d", e.Round))
		}
	case workflow.TextEvent:
		line = c.Render(e.Text)
	case workflow.ToolStartEvent:
		line = toolStyle.Render("→ " + Describe(e.ToolName, e.Arguments))
	case workflow.PermissionEvent:
		if e.Decision != permission.Allow {
			line = errorStyle.Render(fmt.Sprintf("  %s denied (%s)", e.ToolName, e.Source))
		}
	case workflow.ToolEndEvent:
		if e.Result.Success {
			line = successStyle.Render("  ✔ ") + dimStyle.Render(truncate(oneLine(e.Result.Output), resultPreview))
		} else {
			line = errorStyle.Render("  ✘ " + truncate(oneLine(e.Result.Error), resultPreview))
		}
	case workflow.DoneEvent:
		if e.Err != nil {
			line = errorStyle.Render("error: " + e.Err.Error())
		}
	}
	if line != "" {
		c.Println(line)
	}
}

// Run prints events until events is closed.
func (c *Console) Run(events <-chan workflow.Event) {
	for ev := range events {
		c.Handle(ev)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
