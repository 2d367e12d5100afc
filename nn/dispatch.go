package nn

import (
	"strings"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Method selects one operator of a composite layer.
type Method string

// MethodKey is the option that carries a Method.
const MethodKey = "method"

// op is a constructed operator, ready to be applied.
type op func(xs ...*G.Node) (*G.Node, error)

// constructor builds an op for layer l from the options resolved against the operator's schema.
type constructor func(l *base, args kwargs.Args) (op, error)

type operator struct {
	schema    kwargs.Schema
	construct constructor
}

type entry struct {
	method Method
	operator
}

// dispatch is a closed table of operators, shared by every composite layer:
// validate the method, resolve the operator's options, construct the operator.
type dispatch struct {
	kind    string
	methods []Method
	table   map[Method]operator
}

func newDispatch(kind string, entries ...entry) dispatch {
	d := dispatch{
		kind:  kind,
		table: make(map[Method]operator, len(entries)),
	}
	for _, e := range entries {
		d.methods = append(d.methods, e.method)
		d.table[e.method] = e.operator
	}
	return d
}

// Methods lists the supported methods in declaration order.
func (d dispatch) Methods() []Method {
	retVal := make([]Method, len(d.methods))
	copy(retVal, d.methods)
	return retVal
}

func (d dispatch) lookup(m Method) (operator, error) {
	o, ok := d.table[m]
	if !ok {
		valid := make([]string, len(d.methods))
		for i := range d.methods {
			valid[i] = string(d.methods[i])
		}
		return operator{}, errors.WithStack(&EnumError{Kind: d.kind, Got: string(m), Valid: valid})
	}
	return o, nil
}

// build constructs the operator selected by m for layer l.
// It returns the op and the options it was built with.
func (d dispatch) build(l *base, m Method) (op, kwargs.Args, error) {
	o, err := d.lookup(m)
	if err != nil {
		return nil, nil, err
	}
	args := o.schema.Resolve(l.overrides, true)
	fn, err := o.construct(l, args)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "%s: unable to construct %s", l.Name(), m)
	}
	l.logf("%s %v", m, args)
	return fn, args, nil
}

// methodOf reads the method option, case insensitively.
func methodOf(args kwargs.Args, def Method) Method {
	return Method(strings.ToLower(args.String(MethodKey, string(def))))
}
