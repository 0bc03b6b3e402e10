package permission

import (
	"fmt"
	"strings"
)

// Decision is the outcome of a permission check.
type Decision int

const (
	Deny Decision = iota
	Allow
	Ask
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Mode is the process-wide policy for deciding without a human.
type Mode string

const (
	ModeAuto         Mode = "auto"
	ModeAsk          Mode = "ask"
	ModeSmartApprove Mode = "smart_approve"
	ModeDeny         Mode = "deny"
)

// ParseMode accepts a mode name case-insensitively, with "-" or "_".
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch m {
	case ModeAuto, ModeAsk, ModeSmartApprove, ModeDeny:
		return m, nil
	}
	return "", fmt.Errorf("unknown permission mode %q", s)
}

// Scope selects the key under which a remembered decision is stored.
type Scope string

const (
	// ScopeTool remembers per (session, tool).
	ScopeTool Scope = "tool"
	// ScopeArguments remembers per (session, tool, argument fingerprint).
	ScopeArguments Scope = "arguments"
)

func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeTool, ScopeArguments:
		return sc, nil
	}
	return "", fmt.Errorf("unknown remember scope %q", s)
}
