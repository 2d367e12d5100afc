package nn

import (
	"github.com/gorgonia/brainium/kwargs"
	G "gorgonia.org/gorgonia"
)

// Activation methods.
const (
	ActReLU        Method = "relu"
	ActPReLU       Method = "prelu"
	ActLeaky       Method = "leaky"
	ActThreshold   Method = "threshold"
	ActELU         Method = "elu"
	ActSELU        Method = "selu"
	ActSigmoid     Method = "sigmoid"
	ActHardSigmoid Method = "hard_sigmoid"
	ActSoftmax     Method = "softmax"
	ActSoftsign    Method = "softsign"
	ActSoftplus    Method = "softplus"
	ActTanh        Method = "tanh"
	ActLinear      Method = "linear"
)

const (
	seluAlpha = 1.6732632423543772848170429916717
	seluScale = 1.0507009873554804934193349852946
)

var activationSchema = kwargs.New().Add(MethodKey, "", string(ActSigmoid))

var activations = newDispatch("activation",
	entry{ActReLU, operator{
		schema: kwargs.New().Add("max", "", nil).Add("slope", "", 0.0).Add("threshold", "", 0.0).
			Keymap(map[string]string{"max": "max_value", "slope": "negative_slope"}),
		construct: relu,
	}},
	entry{ActPReLU, operator{
		schema: kwargs.New().Add("weight_decay", "", L2(5e-6)).Add("axes", "", nil).
			Keymap(map[string]string{"weight_decay": "alpha_regularizer", "axes": "shared_axes"}),
		construct: prelu,
	}},
	entry{ActLeaky, operator{
		schema:    kwargs.New().Add("alpha", "", 0.02),
		construct: leaky,
	}},
	entry{ActThreshold, operator{
		schema:    kwargs.New().Add("theta", "", 0.1),
		construct: thresholded,
	}},
	entry{ActELU, operator{construct: unary(elu)}},
	entry{ActSELU, operator{construct: unary(selu)}},
	entry{ActSigmoid, operator{construct: unary(G.Sigmoid)}},
	entry{ActHardSigmoid, operator{construct: unary(hardSigmoid)}},
	entry{ActSoftmax, operator{construct: unary(softmax)}},
	entry{ActSoftsign, operator{construct: unary(softsign)}},
	entry{ActSoftplus, operator{construct: unary(G.Softplus)}},
	entry{ActTanh, operator{construct: unary(G.Tanh)}},
	entry{ActLinear, operator{construct: unary(func(x *G.Node) (*G.Node, error) { return x, nil })}},
)

// ActivationMethods lists the supported activation methods.
func ActivationMethods() []Method { return activations.Methods() }

// Activation applies an elementwise (or, for softmax, per row) nonlinearity chosen by its method.
type Activation struct {
	*base
	method Method
	opArgs kwargs.Args
	fn     op
}

// NewActivation creates an activation layer. The method defaults to sigmoid.
func NewActivation(ctx *Context, opts kwargs.Args) (*Activation, error) {
	l := newBase(ctx, "Activation", activationSchema, opts)
	method := methodOf(l.args, ActSigmoid)
	fn, opArgs, err := activations.build(l, method)
	if err != nil {
		return nil, err
	}
	return &Activation{
		base:   l,
		method: method,
		opArgs: opArgs,
		fn:     fn,
	}, nil
}

// Method returns the selected activation.
func (l *Activation) Method() Method { return l.method }

// Args returns the layer options merged with the options of the selected method.
func (l *Activation) Args() kwargs.Args { return kwargs.Merge(l.args, l.opArgs) }

func (l *Activation) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	return l.fn(x)
}

func (l *Activation) Title() string {
	if s := l.term.Suffix(); s != "" {
		return string(l.method) + "_" + s
	}
	return string(l.method)
}

func (l *Activation) Detail() string { return "act: " + string(l.method) }

// unary lifts a single input graph function into a constructor without options.
func unary(f func(x *G.Node) (*G.Node, error)) constructor {
	return func(_ *base, _ kwargs.Args) (op, error) {
		return func(xs ...*G.Node) (*G.Node, error) { return f(xs[0]) }, nil
	}
}

// relu is max(x, 0), or x from the threshold up and slope·(x - threshold) below it. max_value clips from above.
func relu(l *base, args kwargs.Args) (op, error) {
	slope := args.Float("negative_slope", 0)
	threshold := args.Float("threshold", 0)
	clip := args["max_value"] != nil
	max := args.Float("max_value", 0)
	return func(xs ...*G.Node) (*G.Node, error) {
		m := l.maebe()
		x := xs[0]
		var retVal *G.Node
		if slope == 0 && threshold == 0 {
			retVal = m.rectify(x)
		} else {
			above := m.gteMask(x, threshold)
			below := m.sub(m.scalar(1), above)
			neg := m.scale(m.shift(x, -threshold), slope)
			retVal = m.add(m.hadamard(x, above), m.hadamard(neg, below))
		}
		if clip {
			retVal = m.minimum(retVal, m.scalar(max))
		}
		return retVal, m.err
	}, nil
}

// prelu is relu(x) + α·min(x, 0) with a learnable α shared across all axes.
func prelu(l *base, args kwargs.Args) (op, error) {
	reg, err := regularizerOf(args["alpha_regularizer"])
	if err != nil {
		return nil, err
	}
	var alpha *G.Node
	return func(xs ...*G.Node) (*G.Node, error) {
		if alpha == nil {
			if alpha, err = l.scalarWeight("alpha", 0, reg); err != nil {
				return nil, err
			}
		}
		m := l.maebe()
		x := xs[0]
		neg := m.negPart(x)
		scaled := m.do(func() (*G.Node, error) { return G.Mul(neg, alpha) })
		return m.add(m.rectify(x), scaled), m.err
	}, nil
}

func leaky(l *base, args kwargs.Args) (op, error) {
	alpha := args.Float("alpha", 0.02)
	return func(xs ...*G.Node) (*G.Node, error) {
		m := l.maebe()
		x := xs[0]
		retVal := m.do(func() (*G.Node, error) { return G.LeakyRelu(x, alpha) })
		return retVal, m.err
	}, nil
}

// thresholded keeps x where x > theta and zeroes the rest.
func thresholded(l *base, args kwargs.Args) (op, error) {
	theta := args.Float("theta", 0.1)
	return func(xs ...*G.Node) (*G.Node, error) {
		m := l.maebe()
		x := xs[0]
		retVal := m.hadamard(x, m.gtMask(x, theta))
		return retVal, m.err
	}, nil
}

func elu(x *G.Node) (*G.Node, error) {
	m := &maebe{dt: x.Dtype()}
	retVal := m.add(m.rectify(x), m.shift(m.exp(m.negPart(x)), -1))
	return retVal, m.err
}

func selu(x *G.Node) (*G.Node, error) {
	m := &maebe{dt: x.Dtype()}
	neg := m.scale(m.shift(m.exp(m.negPart(x)), -1), seluAlpha)
	retVal := m.scale(m.add(m.rectify(x), neg), seluScale)
	return retVal, m.err
}

// hardSigmoid is clip(0.2x + 0.5, 0, 1).
func hardSigmoid(x *G.Node) (*G.Node, error) {
	m := &maebe{dt: x.Dtype()}
	y := m.rectify(m.shift(m.scale(x, 0.2), 0.5))
	retVal := m.minimum(y, m.scalar(1))
	return retVal, m.err
}

func softmax(x *G.Node) (*G.Node, error) { return G.SoftMax(x) }

// softsign is x / (1 + |x|).
func softsign(x *G.Node) (*G.Node, error) {
	m := &maebe{dt: x.Dtype()}
	abs := m.do(func() (*G.Node, error) { return G.Abs(x) })
	retVal := m.div(x, m.shift(abs, 1))
	return retVal, m.err
}
