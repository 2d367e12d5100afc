// Package naming issues unique, hierarchical names for graph nodes.
package naming

import (
	"regexp"
	"strconv"
	"strings"

	sync "github.com/sasha-s/go-deadlock"
)

var (
	firstCap = regexp.MustCompile(`(.)([A-Z][a-z0-9]+)`)
	allCap   = regexp.MustCompile(`([a-z])([A-Z])`)
)

// SnakeCase converts a CamelCase type name into snake_case.
// Names that would start with an underscore are prefixed with "private".
func SnakeCase(name string) string {
	s := firstCap.ReplaceAllString(name, "${1}_${2}")
	s = strings.ToLower(allCap.ReplaceAllString(s, "${1}_${2}"))
	if strings.HasPrefix(s, "_") {
		return "private" + s
	}
	return s
}

// Registry hands out unique names. The zero value is not usable; use NewRegistry.
//
// The first request for a name returns it unchanged. Subsequent requests get
// "_1", "_2", ... appended. A name is never issued twice, even if a caller
// explicitly asks for one that was previously produced as a disambiguated variant.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int
	issued map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counts: make(map[string]int),
		issued: make(map[string]struct{}),
	}
}

// Unique returns a name derived from name that has not been issued before, and records it.
func (r *Registry) Unique(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	proposed := name
	for {
		if _, taken := r.issued[proposed]; !taken {
			break
		}
		r.counts[name]++
		proposed = name + "_" + strconv.Itoa(r.counts[name])
	}
	r.issued[proposed] = struct{}{}
	return proposed
}

// Len returns the number of names issued so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issued)
}

// Reset forgets every issued name.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.counts = make(map[string]int)
	r.issued = make(map[string]struct{})
	r.mu.Unlock()
}

// Term creates the identity of a node. typeName is used when name is empty.
func (r *Registry) Term(typeName, name, prefix string) Term {
	if name == "" {
		name = typeName
	}
	basename := SnakeCase(name)
	fullname := basename
	if prefix != "" {
		fullname = prefix + "." + basename
	}
	return makeTerm(prefix, basename, r.Unique(fullname))
}
