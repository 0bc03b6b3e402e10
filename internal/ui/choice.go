package ui

import "github.com/Cyclone1070/agentgate/internal/permission"

// choice is one answer to a permission prompt.
type choice struct {
	label    string
	key      string
	decision permission.Decision
	remember bool
}

var choices = []choice{
	{label: "Allow once", key: "y", decision: permission.Allow},
	{label: "Always allow", key: "a", decision: permission.Allow, remember: true},
	{label: "Deny", key: "n", decision: permission.Deny},
	{label: "Always deny", key: "d", decision: permission.Deny, remember: true},
}

// choiceForKey matches a typed answer. An empty answer is Deny.
func choiceForKey(s string) (choice, bool) {
	switch s {
	case "", "no":
		return choices[2], true
	case "yes":
		return choices[0], true
	case "always":
		return choices[1], true
	case "never":
		return choices[3], true
	}
	for _, c := range choices {
		if c.key == s {
			return c, true
		}
	}
	return choice{}, false
}
