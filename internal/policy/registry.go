package policy

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Registry maps vulnerability category names to the active-scan rule ids
// that implement them. It is immutable once built.
type Registry struct {
	categories map[string][]int
}

// builtin is the default category table.
var builtin = map[string][]int{
	"directory-browsing":         {0},
	"cross-site-scripting":       {40012, 40014, 40016, 40017},
	"sql-injection":              {40018},
	"path-traversal":             {6},
	"remote-file-inclusion":      {7},
	"server-side-include":        {40009},
	"script-active-scan-rules":   {50000},
	"server-side-code-injection": {90019},
	"external-redirect":          {30000},
	"crlf-injection":             {40003},
}

// DefaultRegistry returns the built-in category table.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(nil)
	return r
}

// NewRegistry builds a registry from the built-in table extended (or
// overridden) by extra. Names are case-insensitive.
func NewRegistry(extra map[string][]int) (*Registry, error) {
	cats := make(map[string][]int, len(builtin)+len(extra))
	for name, ids := range builtin {
		cats[name] = slices.Clone(ids)
	}
	for name, ids := range extra {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("policy category with empty name")
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("policy category %q has no rule ids", name)
		}
		cats[key] = slices.Clone(ids)
	}
	return &Registry{categories: cats}, nil
}

// Lookup returns the rule ids for name.
func (r *Registry) Lookup(name string) ([]int, bool) {
	ids, ok := r.categories[normalize(name)]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

// Names lists the registered categories in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.categories))
	for n := range r.categories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
