package detector

import "strings"

// Registry keeps rules by id in registration order.
type Registry struct {
	order []string
	rules map[string]Rule
}

// NewRegistry registers the given rules in order.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry holding the built-in rules.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinRules()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register appends a rule. Ids must be unique.
func (r *Registry) Register(rule Rule) error {
	id := strings.TrimSpace(rule.ID)
	if id == "" {
		return configErrorf("", "rule id cannot be empty")
	}
	if _, dup := r.rules[id]; dup {
		return configErrorf(id, "rule already registered")
	}
	rule.ID = id
	r.order = append(r.order, id)
	r.rules[id] = rule
	return nil
}

// Lookup returns the rule registered under id.
func (r *Registry) Lookup(id string) (Rule, bool) {
	rule, ok := r.rules[id]
	return rule, ok
}

// IDs returns rule ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Rules returns every registered rule in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Select returns the named rules in the order given. Duplicates are dropped.
// An empty list selects everything.
func (r *Registry) Select(ids []string) ([]Rule, error) {
	if len(ids) == 0 {
		return r.Rules(), nil
	}

	var out []Rule
	seen := map[string]struct{}{}
	for _, id := range ids {
		rule, ok := r.rules[id]
		if !ok {
			return nil, configErrorf(id, "unknown rule")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, rule)
	}
	return out, nil
}
