package authz

import (
	"errors"
	"fmt"
	"sort"
)

// Rule is the value side of a permission entry. A plain entry allows the
// operation for the role; OwnerOnly additionally requires the principal to
// own the resource.
type Rule struct {
	OwnerOnly bool `json:"ownerOnly,omitempty"`
}

// Table is the immutable role -> operation -> rule mapping. Build it once
// with NewTable (or the loader) and hand it to a Gate; there is no way to
// mutate an existing table.
type Table struct {
	rules map[string]map[Operation]Rule
}

// NewTable copies the given rules into an immutable table. Role and
// operation names must be non-empty.
func NewTable(rules map[string]map[Operation]Rule) (*Table, error) {
	t := &Table{rules: make(map[string]map[Operation]Rule, len(rules))}
	for role, ops := range rules {
		if role == "" {
			return nil, errors.New("authz: empty role name")
		}
		entry := make(map[Operation]Rule, len(ops))
		for op, rule := range ops {
			if op == "" {
				return nil, fmt.Errorf("authz: role %q: empty operation name", role)
			}
			entry[op] = rule
		}
		t.rules[role] = entry
	}
	return t, nil
}

// Rule looks up the exact (role, operation) entry.
func (t *Table) Rule(role string, op Operation) (Rule, bool) {
	ops, ok := t.rules[role]
	if !ok {
		return Rule{}, false
	}
	rule, ok := ops[op]
	return rule, ok
}

// Roles returns the declared role names, sorted.
func (t *Table) Roles() []string {
	out := make([]string, 0, len(t.rules))
	for role := range t.rules {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// Operations returns the operations declared for a role, sorted.
func (t *Table) Operations(role string) []Operation {
	ops := t.rules[role]
	out := make([]Operation, 0, len(ops))
	for op := range ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
