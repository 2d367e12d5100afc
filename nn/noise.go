package nn

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Dropout methods.
const (
	DropStandard Method = "none"
	DropAlpha    Method = "alpha"
	DropGaussian Method = "gaussian"
	DropSpatial  Method = "spatial"
)

// alphaPrime is the value SELU saturates to: -scale·alpha.
const alphaPrime float32 = -seluScale * seluAlpha

var (
	dropoutSchema = kwargs.New().Add(MethodKey, "", string(DropStandard))

	randomDropSchema  = kwargs.New().Add("rate", "", 0.2).Add("shape", "noise_shape", nil).Add("seed", "", nil)
	spatialDropSchema = kwargs.New().Add("rate", "", 0.2).Add("data_format", "", ChannelsFirst)
)

var dropouts = newDispatch("dropout",
	entry{DropStandard, operator{schema: randomDropSchema, construct: standardDropout}},
	entry{DropAlpha, operator{schema: randomDropSchema, construct: alphaDropout}},
	entry{DropGaussian, operator{schema: kwargs.New().Add("rate", "", 0.2), construct: gaussianDropout}},
	entry{DropSpatial, operator{schema: spatialDropSchema, construct: spatialDropout}},
)

// DropoutMethods lists the supported dropout methods.
func DropoutMethods() []Method { return dropouts.Methods() }

// Dropout randomly drops units. The dropped graph is always built; there is no inference mode.
type Dropout struct {
	*base
	method Method
	opArgs kwargs.Args
	fn     op
}

// NewDropout creates a dropout layer. The method defaults to none, standard dropout.
func NewDropout(ctx *Context, opts kwargs.Args) (*Dropout, error) {
	l := newBase(ctx, "Dropout", dropoutSchema, opts)
	method := methodOf(l.args, DropStandard)
	fn, opArgs, err := dropouts.build(l, method)
	if err != nil {
		return nil, err
	}
	return &Dropout{base: l, method: method, opArgs: opArgs, fn: fn}, nil
}

// Method returns the dropout method.
func (l *Dropout) Method() Method { return l.method }

func (l *Dropout) Args() kwargs.Args { return kwargs.Merge(l.args, l.opArgs) }

func (l *Dropout) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	return l.fn(x)
}

func (l *Dropout) Detail() string {
	return fmt.Sprintf("%s: %v", l.method, l.opArgs["rate"])
}

func dropRate(l *base, args kwargs.Args) (float64, error) {
	rate := args.Float("rate", 0.2)
	if rate < 0 || rate >= 1 {
		return 0, errors.Errorf("%s: rate must be in [0, 1), got %v", l.Name(), rate)
	}
	return rate, nil
}

// standardDropout zeroes units with probability rate and scales the rest by 1/(1-rate).
// noise_shape and seed are accepted but the whole input shares one random source.
func standardDropout(l *base, args kwargs.Args) (op, error) {
	rate, err := dropRate(l, args)
	if err != nil {
		return nil, err
	}
	return func(xs ...*G.Node) (*G.Node, error) {
		m := l.maebe()
		x := xs[0]
		retVal := m.do(func() (*G.Node, error) { return G.Dropout(x, rate) })
		return retVal, m.err
	}, nil
}

// alphaDropout keeps the mean and variance of SELU activations: dropped units are set to
// the SELU saturation value and the result is scaled and shifted back.
func alphaDropout(l *base, args kwargs.Args) (op, error) {
	rate, err := dropRate(l, args)
	if err != nil {
		return nil, err
	}
	p := float32(rate)
	a := 1 / math32.Sqrt((1-p)*(1+p*alphaPrime*alphaPrime))
	b := -a * alphaPrime * p
	return func(xs ...*G.Node) (*G.Node, error) {
		m := l.maebe()
		x := xs[0]
		keep := m.keepMask(l.ctx, x.Shape(), rate)
		dropped := m.scale(m.sub(m.scalar(1), keep), float64(alphaPrime))
		retVal := m.add(m.hadamard(x, keep), dropped)
		retVal = m.shift(m.scale(retVal, float64(a)), float64(b))
		return retVal, m.err
	}, nil
}

// gaussianDropout multiplies by noise of mean 1 and variance rate/(1-rate).
func gaussianDropout(l *base, args kwargs.Args) (op, error) {
	rate, err := dropRate(l, args)
	if err != nil {
		return nil, err
	}
	stddev := float64(math32.Sqrt(float32(rate / (1 - rate))))
	return func(xs ...*G.Node) (*G.Node, error) {
		m := l.maebe()
		x := xs[0]
		noise := G.GaussianRandomNode(l.ctx.g, l.ctx.dt, 1, stddev, x.Shape()...)
		retVal := m.hadamard(x, noise)
		return retVal, m.err
	}, nil
}

func spatialDropout(l *base, args kwargs.Args) (op, error) {
	rate, err := dropRate(l, args)
	if err != nil {
		return nil, err
	}
	format, err := dataFormat(args)
	if err != nil {
		return nil, err
	}
	return func(xs ...*G.Node) (*G.Node, error) {
		if _, err := l.spatial(xs[0], 1, 2, 3); err != nil {
			return nil, err
		}
		return dropChannels(l, xs[0], rate, format)
	}, nil
}

// dropChannels drops whole feature maps: one keep decision per sample and channel.
func dropChannels(l *base, x *G.Node, rate float64, format string) (*G.Node, error) {
	m := l.maebe()
	x = m.toChannelsFirst(x, format)
	if m.err != nil {
		return nil, m.err
	}
	// spatial axes are flattened so the mask broadcasts along a single axis
	shape := x.Shape().Clone()
	flat := m.reshape(x, tensor.Shape{shape[0], shape[1], shape[2:].TotalSize()})
	keep := m.scale(m.keepMask(l.ctx, []int{shape[0], shape[1], 1}, rate), 1/(1-rate))
	dropped := m.do(func() (*G.Node, error) { return G.BroadcastHadamardProd(flat, keep, nil, []byte{2}) })
	retVal := m.reshape(dropped, shape)
	retVal = m.fromChannelsFirst(retVal, format)
	return retVal, m.err
}

// keepMask is 1 with probability 1-rate and 0 otherwise.
func (m *maebe) keepMask(ctx *Context, shape []int, rate float64) *G.Node {
	if m.err != nil {
		return nil
	}
	u := G.UniformRandomNode(ctx.g, ctx.dt, 0, 1, shape...)
	return m.gtMask(u, rate)
}

// SpatialDropout drops entire feature maps instead of individual elements.
type SpatialDropout struct {
	*base
	rate   float64
	format string
}

// NewSpatialDropout creates a channel dropout layer for 1D, 2D and 3D inputs.
func NewSpatialDropout(ctx *Context, opts kwargs.Args) (*SpatialDropout, error) {
	l := newBase(ctx, "SpatialDropout", spatialDropSchema, opts)
	rate, err := dropRate(l, l.args)
	if err != nil {
		return nil, err
	}
	format, err := dataFormat(l.args)
	if err != nil {
		return nil, err
	}
	return &SpatialDropout{base: l, rate: rate, format: format}, nil
}

func (l *SpatialDropout) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	if _, err = l.spatial(x, 1, 2, 3); err != nil {
		return nil, err
	}
	return dropChannels(l.base, x, l.rate, l.format)
}

// GaussianNoise adds zero centered gaussian noise.
type GaussianNoise struct {
	*base
	stddev float64
}

var gaussianNoiseSchema = kwargs.New().Add("stddev", "", 0.1)

// NewGaussianNoise creates a layer adding noise of standard deviation 0.1 unless told otherwise.
func NewGaussianNoise(ctx *Context, opts kwargs.Args) (*GaussianNoise, error) {
	l := newBase(ctx, "GaussianNoise", gaussianNoiseSchema, opts)
	stddev := l.args.Float("stddev", 0.1)
	if stddev < 0 {
		return nil, errors.Errorf("%s: stddev must not be negative, got %v", l.Name(), stddev)
	}
	return &GaussianNoise{base: l, stddev: stddev}, nil
}

func (l *GaussianNoise) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	m := l.maebe()
	noise := G.GaussianRandomNode(l.ctx.g, l.ctx.dt, 0, l.stddev, x.Shape()...)
	retVal := m.add(x, noise)
	return retVal, m.err
}

func (l *GaussianNoise) Detail() string { return fmt.Sprintf("stddev: %v", l.stddev) }
