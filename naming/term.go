package naming

import "strings"

// Term is the identity of a node. It is computed once and never changes.
type Term struct {
	prefix   string
	basename string
	fullname string
	proposal string
	suffix   string
}

func makeTerm(prefix, basename, fullname string) Term {
	proposal := fullname
	if i := strings.LastIndexByte(fullname, '.'); i >= 0 {
		proposal = fullname[i+1:]
	}

	// only a disambiguated proposal carries a suffix
	var suffix string
	if proposal != basename {
		suffix = proposal
		if i := strings.LastIndexByte(proposal, '_'); i >= 0 {
			suffix = proposal[i+1:]
		}
		if suffix == basename {
			suffix = ""
		}
	}
	return Term{
		prefix:   prefix,
		basename: basename,
		fullname: fullname,
		proposal: proposal,
		suffix:   suffix,
	}
}

// Prefix is the hierarchical prefix the node was created under. It may be empty.
func (t Term) Prefix() string { return t.prefix }

// Basename is the snake_case name of the node's kind, or of its explicit name.
func (t Term) Basename() string { return t.basename }

// Fullname is the unique, prefix-qualified name.
func (t Term) Fullname() string { return t.fullname }

// Proposal is the last dot separated segment of Fullname.
func (t Term) Proposal() string { return t.proposal }

// Suffix is the disambiguator of Proposal, or "" when there is none.
func (t Term) Suffix() string { return t.suffix }

func (t Term) String() string { return t.fullname }
