package nn

import (
	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	nnops "gorgonia.org/gorgonia/ops/nn"
	"gorgonia.org/tensor"
)

// Pooling methods.
const (
	PoolMax       Method = "max"
	PoolAvg       Method = "avg"
	PoolGlobalMax Method = "global_max"
	PoolGlobalAvg Method = "global_avg"
)

var (
	poolingSchema = kwargs.New().Add(MethodKey, "", string(PoolMax))

	globalPoolSchema = kwargs.New().Add("data_format", "", ChannelsFirst)
	localPoolSchema  = globalPoolSchema.Add("size", "pool_size", 2).Add("strides", "", nil).Add("padding", "", PadValid)
)

var poolings = newDispatch("pooling",
	entry{PoolMax, operator{schema: localPoolSchema, construct: localPool(maxPool)}},
	entry{PoolAvg, operator{schema: localPoolSchema, construct: localPool(avgPool)}},
	entry{PoolGlobalMax, operator{schema: globalPoolSchema, construct: globalPool(G.Max)}},
	entry{PoolGlobalAvg, operator{schema: globalPoolSchema, construct: globalPool(G.Mean)}},
)

// PoolingMethods lists the supported pooling methods.
func PoolingMethods() []Method { return poolings.Methods() }

// Pooling reduces the spatial size of 1D and 2D inputs. Global poolings reduce every spatial axis, leaving (B, C).
type Pooling struct {
	*base
	method Method
	opArgs kwargs.Args
	fn     op
}

// NewPooling creates a pooling layer. The method defaults to max.
func NewPooling(ctx *Context, opts kwargs.Args) (*Pooling, error) {
	l := newBase(ctx, "Pooling", poolingSchema, opts)
	method := methodOf(l.args, PoolMax)
	fn, opArgs, err := poolings.build(l, method)
	if err != nil {
		return nil, err
	}
	return &Pooling{base: l, method: method, opArgs: opArgs, fn: fn}, nil
}

// Method returns the pooling method.
func (l *Pooling) Method() Method { return l.method }

func (l *Pooling) Args() kwargs.Args { return kwargs.Merge(l.args, l.opArgs) }

func (l *Pooling) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	if _, err = l.spatial(x, 1, 2); err != nil {
		return nil, err
	}
	return l.fn(x)
}

func (l *Pooling) Detail() string { return "pool: " + string(l.method) }

type reduceFn func(m *maebe, x *G.Node, kernel tensor.Shape, pad, strides []int) *G.Node

// localPool runs reduce over windows of pool_size. Strides default to the pool size.
func localPool(reduce reduceFn) constructor {
	return func(l *base, args kwargs.Args) (op, error) {
		format, err := dataFormat(args)
		if err != nil {
			return nil, err
		}
		padding := args.String("padding", PadValid)
		if padding != PadValid && padding != PadSame {
			return nil, errors.WithStack(&EnumError{Kind: "padding", Got: padding, Valid: []string{PadValid, PadSame}})
		}
		return func(xs ...*G.Node) (*G.Node, error) {
			dims := xs[0].Dims() - 2
			size := args.Ints("pool_size", dims, 2)
			strides := size
			if args["strides"] != nil {
				strides = args.Ints("strides", dims, 1)
			}
			if dims == 1 {
				size = append([]int{1}, size...)
				strides = append([]int{1}, strides...)
			}
			pad := make([]int, 2)
			if padding == PadSame {
				for i := range pad {
					pad[i] = findPadding(size[i], 1)
				}
			}

			m := l.maebe()
			x := m.toChannelsFirst(xs[0], format)
			if dims == 1 {
				x = m.as2D(x)
			}
			retVal := reduce(m, x, tensor.Shape(size), pad, strides)
			if dims == 1 {
				retVal = m.as1D(retVal)
			}
			retVal = m.fromChannelsFirst(retVal, format)
			return retVal, m.err
		}, nil
	}
}

func maxPool(m *maebe, x *G.Node, kernel tensor.Shape, pad, strides []int) *G.Node {
	return m.do(func() (*G.Node, error) { return nnops.MaxPool2D(x, kernel, pad, strides) })
}

// avgPool lays every window out as a column and averages it.
// Padded cells count as zeros.
func avgPool(m *maebe, x *G.Node, kernel tensor.Shape, pad, strides []int) *G.Node {
	cols := m.do(func() (*G.Node, error) { return G.Im2Col(x, kernel, pad, strides, []int{1, 1}) })
	if m.err != nil {
		return nil
	}
	s := cols.Shape() // (B, H', W', C·kh·kw)
	retVal := m.reshape(cols, tensor.Shape{s[0], s[1], s[2], x.Shape()[1], kernel[0] * kernel[1]})
	retVal = m.do(func() (*G.Node, error) { return G.Mean(retVal, 4) })
	return m.transpose(retVal, 0, 3, 1, 2)
}

func globalPool(reduce func(x *G.Node, along ...int) (*G.Node, error)) constructor {
	return func(l *base, args kwargs.Args) (op, error) {
		format, err := dataFormat(args)
		if err != nil {
			return nil, err
		}
		return func(xs ...*G.Node) (*G.Node, error) {
			m := l.maebe()
			x := m.toChannelsFirst(xs[0], format)
			if m.err != nil {
				return nil, m.err
			}
			var along []int
			for i := 2; i < x.Dims(); i++ {
				along = append(along, i)
			}
			retVal := m.do(func() (*G.Node, error) { return reduce(x, along...) })
			return retVal, m.err
		}, nil
	}
}
