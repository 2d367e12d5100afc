// Package kwargs resolves sparse option overrides against declared defaults.
//
// A Schema declares, in order, the logical names a constructor understands,
// the key each one is emitted under and its default value. Resolving a Schema
// against a set of overrides yields a flat Args that only ever contains the
// declared names.
package kwargs

import (
	"github.com/pkg/errors"
)

// Binding is the declaration of one logical name.
type Binding struct {
	Key     string      // output key. Empty means the logical name is used verbatim.
	Default interface{} // used when no override is given
	Nested  *Schema     // when set, overrides for the name are resolved through it
}

// Schema is an ordered set of bindings. It is a value: every method that
// changes it returns a new Schema and leaves the receiver untouched.
type Schema struct {
	names    []string
	bindings map[string]Binding
	keymap   map[string]string
}

// New returns an empty Schema.
func New() Schema { return Schema{} }

// FromArgs builds a Schema whose bindings are the keys of a, in sorted order,
// each defaulting to its value in a.
func FromArgs(a Args) Schema {
	s := New().clone(len(a))
	for _, k := range a.Keys() {
		s.set(k, Binding{Default: a[k]})
	}
	return s
}

// Add registers (or overwrites) the binding of name. An empty name is a
// placeholder that registers nothing.
func (s Schema) Add(name, key string, def interface{}) Schema {
	if name == "" {
		return s
	}
	retVal := s.clone(1)
	retVal.set(name, Binding{Key: key, Default: def})
	return retVal
}

// AddNested registers a binding whose overrides are resolved through nested.
func (s Schema) AddNested(name, key string, nested Schema) Schema {
	if name == "" {
		return s
	}
	retVal := s.clone(1)
	retVal.set(name, Binding{Key: key, Nested: &nested})
	return retVal
}

// Remove deletes the binding of name. It fails if name was never registered.
func (s Schema) Remove(name string) (Schema, error) {
	if _, ok := s.bindings[name]; !ok {
		return s, errors.WithStack(&LookupError{Name: name})
	}
	retVal := s.clone(0)
	delete(retVal.bindings, name)
	for i, n := range retVal.names {
		if n == name {
			retVal.names = append(retVal.names[:i], retVal.names[i+1:]...)
			break
		}
	}
	return retVal, nil
}

// Keymap returns a Schema that renames output keys as a final pass of resolution.
// Entries are merged into any existing keymap.
func (s Schema) Keymap(m map[string]string) Schema {
	retVal := s.clone(0)
	retVal.keymap = make(map[string]string, len(s.keymap)+len(m))
	for k, v := range s.keymap {
		retVal.keymap[k] = v
	}
	for k, v := range m {
		retVal.keymap[k] = v
	}
	return retVal
}

// Names returns the logical names in declaration order.
func (s Schema) Names() []string {
	retVal := make([]string, len(s.names))
	copy(retVal, s.names)
	return retVal
}

// Len returns the number of bindings.
func (s Schema) Len() int { return len(s.names) }

// Binding returns the binding of name.
func (s Schema) Binding(name string) (Binding, bool) {
	b, ok := s.bindings[name]
	return b, ok
}

// Resolve merges overrides into the declared defaults.
//
// Only declared names reach the output; unknown override keys are dropped.
// When recursive is set and both the default and the override of a name are
// mappings, the override is resolved against the default mapping instead of
// replacing it. Resolution never fails.
func (s Schema) Resolve(overrides Args, recursive bool) Args {
	retVal := make(Args, len(s.names))
	for _, name := range s.names {
		b := s.bindings[name]
		override, given := overrides[name]

		var v interface{}
		switch {
		case b.Nested != nil:
			if nested, ok := AsArgs(override); ok || !given {
				v = b.Nested.Resolve(nested, recursive)
			} else {
				v = override
			}
		case !given:
			v = b.Default
			if m, ok := AsArgs(v); ok {
				v = m.Clone()
			}
		default:
			v = override
			if recursive {
				def, dok := AsArgs(b.Default)
				over, ook := AsArgs(override)
				if dok && ook {
					v = FromArgs(def).Resolve(over, recursive)
				}
			}
		}
		retVal[s.outKey(name, b)] = v
	}
	return retVal
}

func (s Schema) outKey(name string, b Binding) string {
	key := name
	if b.Key != "" {
		key = b.Key
	}
	if mapped, ok := s.keymap[key]; ok {
		return mapped
	}
	if mapped, ok := s.keymap[name]; ok {
		return mapped
	}
	return key
}

func (s Schema) clone(extra int) Schema {
	retVal := Schema{
		names:    make([]string, len(s.names), len(s.names)+extra),
		bindings: make(map[string]Binding, len(s.bindings)+extra),
		keymap:   s.keymap,
	}
	copy(retVal.names, s.names)
	for k, v := range s.bindings {
		retVal.bindings[k] = v
	}
	return retVal
}

func (s *Schema) set(name string, b Binding) {
	if _, ok := s.bindings[name]; !ok {
		s.names = append(s.names, name)
	}
	s.bindings[name] = b
}
