package nn

import (
	"github.com/gorgonia/brainium/config"
	"github.com/gorgonia/brainium/kwargs"
	"github.com/gorgonia/brainium/naming"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Option names understood by every layer, on top of its schema.
const (
	NameKey   = "name"   // explicit name, replaces the layer kind in the basename
	PrefixKey = "prefix" // hierarchical prefix of the fullname
)

// Data formats.
const (
	ChannelsFirst = "channels_first"
	ChannelsLast  = "channels_last"
)

// Layer is a named, configured node builder.
//
// Weights are created the first time a layer is applied and reused by every later application.
type Layer interface {
	Term() naming.Term
	Name() string
	Args() kwargs.Args
	Title() string
	Detail() string
	Apply(xs ...*G.Node) (*G.Node, error)
	Learnables() G.Nodes
	Penalties() G.Nodes
}

// base holds what every layer shares: identity, resolved options and created weights.
type base struct {
	ctx  *Context
	term naming.Term

	overrides kwargs.Args // sections and explicit options, merged by precedence
	args      kwargs.Args // overrides resolved against the layer schema

	learnables G.Nodes
	penalties  G.Nodes
}

// newBase names a layer and resolves its options.
//
// Precedence, lowest first: schema defaults, the context sections for the
// basename and then the fullname, sections embedded in opts, opts itself.
func newBase(ctx *Context, kind string, schema kwargs.Schema, opts kwargs.Args) *base {
	term := ctx.names.Term(kind, opts.String(NameKey, ""), opts.String(PrefixKey, ""))
	names := []string{term.Basename(), term.Fullname()}
	overrides := kwargs.Merge(ctx.sections.Lookup(names...), config.Embedded(opts, names...), opts)
	l := &base{
		ctx:       ctx,
		term:      term,
		overrides: overrides,
		args:      schema.Resolve(overrides, true),
	}
	l.logf("%v", l.args)
	return l
}

func (l *base) Term() naming.Term { return l.term }
func (l *base) Name() string      { return l.term.Fullname() }
func (l *base) Args() kwargs.Args { return l.args.Clone() }
func (l *base) Title() string     { return l.term.Fullname() }
func (l *base) Detail() string    { return l.term.Fullname() }

func (l *base) Learnables() G.Nodes { return l.learnables }
func (l *base) Penalties() G.Nodes  { return l.penalties }

// logf writes to the build log, prefixed by the layer name.
func (l *base) logf(format string, args ...interface{}) {
	l.ctx.logger.Printf("%s "+format, append([]interface{}{l.term.Fullname()}, args...)...)
}

func (l *base) maebe() *maebe { return &maebe{dt: l.ctx.dt} }

// weight creates a learnable tensor owned by the layer. A non nil reg adds its penalty to the layer.
func (l *base) weight(name string, shape tensor.Shape, init G.InitWFn, reg Regularizer) (*G.Node, error) {
	w := G.NewTensor(l.ctx.g, l.ctx.dt, shape.Dims(), G.WithShape(shape...), G.WithName(l.term.Fullname()+"/"+name), G.WithInit(init))
	l.learnables = append(l.learnables, w)
	if reg != nil {
		p, err := reg.Penalty(w)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: penalty of %s", l.Name(), name)
		}
		l.penalties = append(l.penalties, p)
	}
	return w, nil
}

// scalarWeight creates a learnable scalar initialized to v.
func (l *base) scalarWeight(name string, v float64, reg Regularizer) (*G.Node, error) {
	var val interface{} = float32(v)
	if l.ctx.dt == tensor.Float64 {
		val = v
	}
	w := G.NewScalar(l.ctx.g, l.ctx.dt, G.WithName(l.term.Fullname()+"/"+name), G.WithValue(val))
	l.learnables = append(l.learnables, w)
	if reg != nil {
		p, err := reg.Penalty(w)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: penalty of %s", l.Name(), name)
		}
		l.penalties = append(l.penalties, p)
	}
	return w, nil
}

// one checks that exactly one input was given.
func (l *base) one(xs []*G.Node) (*G.Node, error) {
	if err := l.arity(xs, 1, 1); err != nil {
		return nil, err
	}
	return xs[0], nil
}

// arity checks that between min and max non nil inputs were given. max < 0 is unbounded.
func (l *base) arity(xs []*G.Node, min, max int) error {
	for _, x := range xs {
		if x == nil {
			return errors.Errorf("%s: nil input", l.Name())
		}
	}
	if len(xs) < min || (max >= 0 && len(xs) > max) {
		return errors.WithStack(&ArityError{Layer: l.Name(), Got: len(xs), Min: min, Max: max})
	}
	return nil
}

// spatial returns the number of spatial axes of x if it is one of supported.
func (l *base) spatial(x *G.Node, supported ...int) (int, error) {
	dim := x.Dims() - 2
	for _, s := range supported {
		if s == dim {
			return dim, nil
		}
	}
	return 0, errors.WithStack(&DimError{Layer: l.Name(), Got: dim, Supported: supported})
}

// dataFormat validates the data_format option.
func dataFormat(args kwargs.Args) (string, error) {
	f := args.String("data_format", ChannelsFirst)
	switch f {
	case ChannelsFirst, ChannelsLast:
		return f, nil
	}
	return "", errors.WithStack(&EnumError{Kind: "data_format", Got: f, Valid: []string{ChannelsFirst, ChannelsLast}})
}
