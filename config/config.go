// Package config loads per-node option sections.
//
// A configuration document is a YAML mapping from node names to option
// mappings. A node looks up the section keyed by its basename, then the one
// keyed by its fullname, so a section for "conv" applies to every convolution
// and a section for "block.conv_1" to exactly one:
//
//	conv:
//	  filters: 32
//	block.conv_1:
//	  kernel: 5
package config

import (
	"io"
	"os"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfKey marks an option mapping that embeds sections keyed by node names.
const ConfKey = "_conf"

// Sections maps node names to option overrides.
type Sections map[string]kwargs.Args

// Load decodes sections from a YAML document. An empty document yields no sections.
func Load(r io.Reader) (Sections, error) {
	var raw map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Sections{}, nil
		}
		return nil, errors.Wrap(err, "unable to decode sections")
	}
	return FromArgs(kwargs.Args(raw))
}

// LoadFile loads sections from the YAML file at filename.
func LoadFile(filename string) (Sections, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "config %s", filename)
	}
	return s, nil
}

// FromArgs interprets every entry of a as a section. Entries that are not mappings are an error.
func FromArgs(a kwargs.Args) (Sections, error) {
	retVal := make(Sections, len(a))
	for _, k := range a.Keys() {
		if a[k] == nil {
			retVal[k] = kwargs.Args{}
			continue
		}
		section, ok := kwargs.AsArgs(a[k])
		if !ok {
			return nil, errors.Errorf("section %q is a %T, not a mapping", k, a[k])
		}
		retVal[k] = section
	}
	return retVal, nil
}

// Lookup overlays the sections of names, in order. Missing sections are skipped.
func (s Sections) Lookup(names ...string) kwargs.Args {
	layers := make([]kwargs.Args, 0, len(names))
	for _, n := range names {
		layers = append(layers, s[n])
	}
	return kwargs.Merge(layers...)
}

// Embedded returns the sections embedded in opts when opts carries ConfKey.
func Embedded(opts kwargs.Args, names ...string) kwargs.Args {
	if !opts.Has(ConfKey) {
		return nil
	}
	layers := make([]kwargs.Args, 0, len(names))
	for _, n := range names {
		if section, ok := opts.Section(n); ok {
			layers = append(layers, section)
		}
	}
	return kwargs.Merge(layers...)
}
