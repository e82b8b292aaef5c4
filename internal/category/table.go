// Package category holds the immutable category policy table.
package category

import "sort"

// Policy is the content policy for one category. When AllowAllFiles is
// false, only parts with an image content type are accepted.
type Policy struct {
	AllowAllFiles bool
}

// Table maps category names to their policies. It is built once at startup
// and never mutated afterwards, so it is safe for concurrent reads without
// locking.
type Table struct {
	policies map[string]Policy
}

// NewTable builds a table from the given name-to-policy map.
func NewTable(policies map[string]Policy) *Table {
	copied := make(map[string]Policy, len(policies))
	for name, policy := range policies {
		copied[name] = policy
	}
	return &Table{policies: copied}
}

// Lookup returns the policy for name and whether the category exists.
func (t *Table) Lookup(name string) (Policy, bool) {
	policy, ok := t.policies[name]
	return policy, ok
}

// Names returns the category names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.policies))
	for name := range t.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
