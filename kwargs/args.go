package kwargs

import (
	"fmt"
	"sort"
)

// Args is a flat mapping of option names to values. Values that are themselves
// mappings (Args or map[string]interface{}) are treated as nested sections.
type Args map[string]interface{}

// Merge overlays the given mappings in order. Later mappings win. Nil mappings are skipped.
// A mapping value overlaid on a mapping value is merged key by key, so sub-keys set only
// by an earlier layer survive. Nested mappings are copied, never shared with the inputs.
func Merge(layers ...Args) Args {
	retVal := make(Args)
	for _, l := range layers {
		for k, v := range l {
			sub, ok := AsArgs(v)
			if !ok {
				retVal[k] = v
				continue
			}
			prev, _ := AsArgs(retVal[k])
			retVal[k] = Merge(prev, sub)
		}
	}
	return retVal
}

// Clone returns a deep copy of the nested mappings in a. Leaf values are shared.
func (a Args) Clone() Args {
	if a == nil {
		return nil
	}
	retVal := make(Args, len(a))
	for k, v := range a {
		if m, ok := AsArgs(v); ok {
			retVal[k] = m.Clone()
			continue
		}
		retVal[k] = v
	}
	return retVal
}

// Has reports whether name is present, even with a nil value.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Pop removes name and returns its value, or def if absent.
func (a Args) Pop(name string, def interface{}) interface{} {
	v, ok := a[name]
	if !ok {
		return def
	}
	delete(a, name)
	return v
}

// Keys returns the sorted keys of a.
func (a Args) Keys() []string {
	retVal := make([]string, 0, len(a))
	for k := range a {
		retVal = append(retVal, k)
	}
	sort.Strings(retVal)
	return retVal
}

// Section returns the nested mapping stored under name.
func (a Args) Section(name string) (Args, bool) {
	v, ok := a[name]
	if !ok {
		return nil, false
	}
	return AsArgs(v)
}

// String returns the value of name as a string. A nil or absent value yields def.
func (a Args) String(name, def string) string {
	switch v := a[name].(type) {
	case nil:
		return def
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value of name as an int. Values of another type yield def.
func (a Args) Int(name string, def int) int {
	if n, ok := toInt(a[name]); ok {
		return n
	}
	return def
}

// Float returns the value of name as a float64. Values of another type yield def.
func (a Args) Float(name string, def float64) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	}
	if n, ok := toInt(a[name]); ok {
		return float64(n)
	}
	return def
}

// Bool returns the value of name as a bool. Values of another type yield def.
func (a Args) Bool(name string, def bool) bool {
	if v, ok := a[name].(bool); ok {
		return v
	}
	return def
}

// Ints returns the value of name as an n-tuple. A scalar is repeated n times,
// as is def when the value is absent or malformed.
func (a Args) Ints(name string, n, def int) []int {
	retVal := make([]int, n)
	if s, ok := toInt(a[name]); ok {
		def = s
	} else if l, ok := toInts(a[name]); ok && len(l) == n {
		copy(retVal, l)
		return retVal
	}
	for i := range retVal {
		retVal[i] = def
	}
	return retVal
}

// AsArgs reports whether v is a mapping, and returns it as Args.
func AsArgs(v interface{}) (Args, bool) {
	switch m := v.(type) {
	case Args:
		return m, true
	case map[string]interface{}:
		return Args(m), true
	case map[interface{}]interface{}:
		retVal := make(Args, len(m))
		for k, v := range m {
			retVal[fmt.Sprint(k)] = v
		}
		return retVal, true
	}
	return nil, false
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func toInts(v interface{}) ([]int, bool) {
	switch l := v.(type) {
	case []int:
		return l, true
	case []interface{}:
		retVal := make([]int, len(l))
		for i := range l {
			n, ok := toInt(l[i])
			if !ok {
				return nil, false
			}
			retVal[i] = n
		}
		return retVal, true
	}
	return nil, false
}
