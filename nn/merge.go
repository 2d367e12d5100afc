package nn

import (
	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Merge methods.
const (
	MergeAdd    Method = "add"
	MergeSub    Method = "sub"
	MergeMul    Method = "mul"
	MergeMin    Method = "min"
	MergeMax    Method = "max"
	MergeConcat Method = "concat"
	MergeDot    Method = "dot"
)

var mergeSchema = kwargs.New().Add(MethodKey, "", string(MergeAdd))

var merges = newDispatch("merge",
	entry{MergeAdd, operator{construct: fold(2, -1, (*maebe).add)}},
	entry{MergeSub, operator{construct: fold(2, 2, (*maebe).sub)}},
	entry{MergeMul, operator{construct: fold(2, -1, (*maebe).hadamard)}},
	entry{MergeMin, operator{construct: fold(2, -1, (*maebe).minimum)}},
	entry{MergeMax, operator{construct: fold(2, -1, (*maebe).maximum)}},
	entry{MergeConcat, operator{
		schema:    kwargs.New().Add("axis", "", -1),
		construct: concatenate,
	}},
	entry{MergeDot, operator{
		schema:    kwargs.New().Add("axes", "", -1).Add("normalize", "", false),
		construct: dot,
	}},
)

// MergeMethods lists the supported merge methods.
func MergeMethods() []Method { return merges.Methods() }

// Merge combines several inputs of the same shape into one.
type Merge struct {
	*base
	method Method
	opArgs kwargs.Args
	fn     op
}

// NewMerge creates a merge layer. The method defaults to add.
func NewMerge(ctx *Context, opts kwargs.Args) (*Merge, error) {
	l := newBase(ctx, "Merge", mergeSchema, opts)
	method := methodOf(l.args, MergeAdd)
	fn, opArgs, err := merges.build(l, method)
	if err != nil {
		return nil, err
	}
	return &Merge{base: l, method: method, opArgs: opArgs, fn: fn}, nil
}

// Method returns the merge method.
func (l *Merge) Method() Method { return l.method }

func (l *Merge) Args() kwargs.Args { return kwargs.Merge(l.args, l.opArgs) }

func (l *Merge) Apply(xs ...*G.Node) (*G.Node, error) { return l.fn(xs...) }

func (l *Merge) Title() string {
	title := string(l.method) + "_merge"
	if s := l.term.Suffix(); s != "" {
		title += "_" + s
	}
	return title
}

func (l *Merge) Detail() string { return "method: " + string(l.method) }

// fold reduces between min and max inputs, left to right, with f.
func fold(min, max int, f func(m *maebe, a, b *G.Node) *G.Node) constructor {
	return func(l *base, _ kwargs.Args) (op, error) {
		return func(xs ...*G.Node) (*G.Node, error) {
			if err := l.arity(xs, min, max); err != nil {
				return nil, err
			}
			m := l.maebe()
			retVal := xs[0]
			for _, x := range xs[1:] {
				retVal = f(m, retVal, x)
			}
			return retVal, m.err
		}, nil
	}
}

// axisOf turns a negative axis into a positive one.
func axisOf(axis, dims int) int {
	if axis < 0 {
		return dims + axis
	}
	return axis
}

func concatenate(l *base, args kwargs.Args) (op, error) {
	axis := args.Int("axis", -1)
	return func(xs ...*G.Node) (*G.Node, error) {
		if err := l.arity(xs, 2, -1); err != nil {
			return nil, err
		}
		m := l.maebe()
		retVal := m.concat(axisOf(axis, xs[0].Dims()), xs...)
		return retVal, m.err
	}, nil
}

// dot is the sum of the products of two inputs along an axis, which is kept with size 1.
// With normalize, both inputs are L2 normalized along the axis first, giving the cosine proximity.
func dot(l *base, args kwargs.Args) (op, error) {
	axes := args.Ints("axes", 2, -1)
	if axes[0] != axes[1] {
		return nil, errors.Errorf("%s: dot along different axes %v is not supported", l.Name(), axes)
	}
	normalize := args.Bool("normalize", false)
	return func(xs ...*G.Node) (*G.Node, error) {
		if err := l.arity(xs, 2, 2); err != nil {
			return nil, err
		}
		m := l.maebe()
		axis := axisOf(axes[0], xs[0].Dims())
		a, b := xs[0], xs[1]
		if normalize {
			a, b = m.normalize(a, axis), m.normalize(b, axis)
		}
		retVal := m.sumKeep(m.hadamard(a, b), axis)
		return retVal, m.err
	}, nil
}
