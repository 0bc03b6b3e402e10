package risk

// Identity is the part of a tool the classifier looks at.
type Identity interface {
	Name() string
	Risk() Class
}

// Classifier maps a tool identity to a risk class. It is deterministic and
// has no side effects.
type Classifier struct {
	overrides map[string]Class
}

// NewClassifier returns a classifier. Overrides replace the declared class of
// the named tools; they may raise or lower it.
func NewClassifier(overrides map[string]Class) *Classifier {
	o := make(map[string]Class, len(overrides))
	for name, c := range overrides {
		if c.Valid() {
			o[name] = c
		}
	}
	return &Classifier{overrides: o}
}

// Classify returns the risk class for id. A nil identity, an identity with an
// empty name, or a declared class outside the enumeration resolves to Critical.
func (c *Classifier) Classify(id Identity) Class {
	if id == nil || id.Name() == "" {
		return Critical
	}
	if c != nil {
		if o, ok := c.overrides[id.Name()]; ok {
			return o
		}
	}
	declared := id.Risk()
	if !declared.Valid() {
		return Critical
	}
	return declared
}

// ClassifyName classifies a tool known only by name, e.g. one the registry
// does not contain. Only overrides can lower it from Critical.
func (c *Classifier) ClassifyName(name string) Class {
	if c != nil {
		if o, ok := c.overrides[name]; ok {
			return o
		}
	}
	return Critical
}
