// Package risk defines the inherent risk class of a tool and the classifier
// that assigns it.
package risk

import (
	"fmt"
	"strings"
)

// Class is a tool's inherent danger category, independent of the arguments
// of any particular call. Classes are totally ordered.
type Class int

const (
	ReadOnly Class = iota
	ReadWrite
	Destructive
	Critical
)

var classNames = [...]string{
	ReadOnly:    "read_only",
	ReadWrite:   "read_write",
	Destructive: "destructive",
	Critical:    "critical",
}

func (c Class) String() string {
	if !c.Valid() {
		return fmt.Sprintf("risk(%d)", int(c))
	}
	return classNames[c]
}

// Valid reports whether c is one of the declared classes.
func (c Class) Valid() bool {
	return c >= ReadOnly && c <= Critical
}

// Parse accepts the String form of a class, case-insensitively, with either
// "_" or "-" as separator.
func Parse(s string) (Class, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range classNames {
		if name == norm {
			return Class(i), nil
		}
	}
	return Critical, fmt.Errorf("unknown risk class %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
