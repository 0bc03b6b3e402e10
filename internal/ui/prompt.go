package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
)

// promptModel is the bubbletea model of one permission question.
type promptModel struct {
	body   string
	danger bool
	cursor int
	chosen *choice
}

func newPromptModel(call provider.ToolCall, class risk.Class, in permission.Inspection) promptModel {
	return promptModel{
		body:   permissionBody(call, class, in),
		danger: class >= risk.Critical || in.Level >= permission.LevelHigh,
		cursor: 0,
	}
}

func (m promptModel) Init() tea.Cmd { return nil }

type promptKeys struct {
	up     key.Binding
	down   key.Binding
	choose key.Binding
	cancel key.Binding
}

var keys = promptKeys{
	up:     key.NewBinding(key.WithKeys("up", "k", "shift+tab")),
	down:   key.NewBinding(key.WithKeys("down", "j", "tab")),
	choose: key.NewBinding(key.WithKeys("enter")),
	cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c", "q")),
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, keys.down):
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
	case key.Matches(km, keys.choose):
		return m.pick(choices[m.cursor])
	case key.Matches(km, keys.cancel):
		return m.pick(choices[2])
	default:
		for _, c := range choices {
			if km.String() == c.key {
				return m.pick(c)
			}
		}
	}
	return m, nil
}

func (m promptModel) pick(c choice) (tea.Model, tea.Cmd) {
	m.chosen = &c
	return m, tea.Quit
}

func (m promptModel) View() string {
	if m.chosen != nil {
		return ""
	}
	var lines []string
	lines = append(lines, m.body, "")
	for i, c := range choices {
		label := fmt.Sprintf("%s (%s)", c.label, c.key)
		if i == m.cursor {
			lines = append(lines, selectedStyle.Render("▸ "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}
	lines = append(lines, "", hintStyle.Render("↑/↓: Navigate  Enter: Select  Esc: Deny"))

	style := boxStyle
	if m.danger {
		style = dangerBoxStyle
	}
	return style.Render(strings.Join(lines, "\n")) + "\n"
}

// TeaPrompter asks for permission with an interactive bubbletea prompt.
type TeaPrompter struct {
	console *Console
	in      io.Reader
}

func NewTeaPrompter(console *Console, in io.Reader) *TeaPrompter {
	return &TeaPrompter{console: console, in: in}
}

// Prompt implements permission.Prompter.
func (p *TeaPrompter) Prompt(ctx context.Context, call provider.ToolCall, class risk.Class, in permission.Inspection) (permission.Decision, bool, error) {
	p.console.mu.Lock()
	defer p.console.mu.Unlock()

	prog := tea.NewProgram(newPromptModel(call, class, in),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.console.out),
	)
	final, err := prog.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return permission.Deny, false, ctxErr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return permission.Deny, false, fmt.Errorf("permission prompt: %w", err)
	}
	m, ok := final.(promptModel)
	if !ok || m.chosen == nil {
		return permission.Deny, false, nil
	}
	return m.chosen.decision, m.chosen.remember, nil
}
