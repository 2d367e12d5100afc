package nn

import (
	"fmt"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var denseSchema = kwargs.New().
	Add("units", "", 128).
	Add("bias", "use_bias", true).
	Add("weight_decay", "kernel_regularizer", nil)

// Dense connects every input unit to every output unit: x·W + b.
type Dense struct {
	*base
	units int
	bias  bool
	reg   Regularizer

	w, b *G.Node
}

// NewDense creates a fully connected layer of 128 units unless told otherwise.
func NewDense(ctx *Context, opts kwargs.Args) (*Dense, error) {
	l := newBase(ctx, "Dense", denseSchema, opts)
	units := l.args.Int("units", 128)
	if units <= 0 {
		return nil, errors.Errorf("%s: units must be positive, got %d", l.Name(), units)
	}
	reg, err := regularizerOf(l.args["kernel_regularizer"])
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", l.Name())
	}
	return &Dense{
		base:  l,
		units: units,
		bias:  l.args.Bool("use_bias", true),
		reg:   reg,
	}, nil
}

func (l *Dense) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	if _, err = l.spatial(x, 0); err != nil {
		return nil, err
	}
	if l.w == nil {
		if l.w, err = l.weight("kernel", tensor.Shape{x.Shape()[1], l.units}, G.GlorotN(1.0), l.reg); err != nil {
			return nil, err
		}
		if l.bias {
			if l.b, err = l.weight("bias", tensor.Shape{1, l.units}, G.Zeroes(), nil); err != nil {
				return nil, err
			}
		}
	}
	m := l.maebe()
	retVal := m.do(func() (*G.Node, error) { return G.Mul(x, l.w) })
	if l.bias {
		retVal = m.do(func() (*G.Node, error) { return G.BroadcastAdd(retVal, l.b, nil, []byte{0}) })
	}
	return retVal, m.err
}

func (l *Dense) Detail() string { return fmt.Sprintf("units: %d", l.units) }

// Flatten reshapes (B, ...) into (B, N).
type Flatten struct {
	*base
}

// NewFlatten creates a layer that keeps the batch axis and flattens the rest.
func NewFlatten(ctx *Context, opts kwargs.Args) (*Flatten, error) {
	return &Flatten{base: newBase(ctx, "Flatten", kwargs.New(), opts)}, nil
}

func (l *Flatten) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	s := x.Shape()
	if len(s) < 2 {
		return nil, errors.Errorf("%s: cannot flatten a %d-D input", l.Name(), len(s))
	}
	m := l.maebe()
	retVal := m.reshape(x, tensor.Shape{s[0], s[1:].TotalSize()})
	return retVal, m.err
}
