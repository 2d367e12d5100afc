package nn

import (
	"fmt"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Padding styles.
const (
	PadValid = "valid"
	PadSame  = "same"
)

// Deconvolution methods.
const (
	DeconvPixel Method = "pixel"
	DeconvNone  Method = "none"
)

var convSchema = kwargs.New().
	Add("filters", "", 64).
	Add("kernel", "kernel_size", 3).
	Add("strides", "", 1).
	Add("bias", "use_bias", true).
	Add("padding", "", PadValid).
	Add("dilation", "dilation_rate", 1).
	Add("weight_decay", "kernel_regularizer", L2(4e-5)). // Xception
	Add("thin", "", false).
	Add("data_format", "", ChannelsFirst)

var (
	pixelConvSchema = convSchema.Add("r", "", 2)
	deconvSchema    = convSchema.Add("r", "", 2).Add(MethodKey, "", string(DeconvNone))
)

var deconvolutions = newDispatch("deconvolution",
	entry{DeconvPixel, operator{construct: pixelDeconv}},
	entry{DeconvNone, operator{construct: resizeDeconv}},
)

// DeconvolutionMethods lists the supported deconvolution methods.
func DeconvolutionMethods() []Method { return deconvolutions.Methods() }

// convCore holds the weights of a convolution and builds it on channels first 2D inputs.
// Thin cores are depthwise separable: a per channel convolution followed by a 1x1 one.
type convCore struct {
	l       *base
	args    kwargs.Args
	filters int
	thin    bool
	bias    bool
	padding string
	format  string
	reg     Regularizer

	depthwise, kernel, b *G.Node
}

func newConvCore(l *base, filters int) (*convCore, error) {
	args := l.args
	format, err := dataFormat(args)
	if err != nil {
		return nil, err
	}
	padding := args.String("padding", PadValid)
	if padding != PadValid && padding != PadSame {
		return nil, errors.WithStack(&EnumError{Kind: "padding", Got: padding, Valid: []string{PadValid, PadSame}})
	}
	reg, err := regularizerOf(args["kernel_regularizer"])
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", l.Name())
	}
	if filters <= 0 {
		return nil, errors.Errorf("%s: filters must be positive, got %d", l.Name(), filters)
	}
	return &convCore{
		l:       l,
		args:    args,
		filters: filters,
		thin:    args.Bool("thin", false),
		bias:    args.Bool("use_bias", true),
		padding: padding,
		format:  format,
		reg:     reg,
	}, nil
}

// geometry returns the 2D kernel, strides, dilation and padding. 1D geometries get a unit height.
func (c *convCore) geometry(dims int) (kernel, strides, dilation, pad []int) {
	kernel = c.args.Ints("kernel_size", dims, 3)
	strides = c.args.Ints("strides", dims, 1)
	dilation = c.args.Ints("dilation_rate", dims, 1)
	if dims == 1 {
		kernel = append([]int{1}, kernel...)
		strides = append([]int{1}, strides...)
		dilation = append([]int{1}, dilation...)
	}
	pad = make([]int, 2)
	if c.padding == PadSame {
		for i := range pad {
			pad[i] = findPadding(kernel[i], dilation[i])
		}
	}
	return
}

func (c *convCore) init(channels int, kernel []int) (err error) {
	if c.kernel != nil {
		return nil
	}
	if c.thin {
		if c.depthwise, err = c.l.weight("depthwise", tensor.Shape{channels, 1, kernel[0], kernel[1]}, G.GlorotU(1.0), c.reg); err != nil {
			return err
		}
		if c.kernel, err = c.l.weight("pointwise", tensor.Shape{c.filters, channels, 1, 1}, G.GlorotU(1.0), c.reg); err != nil {
			return err
		}
	} else if c.kernel, err = c.l.weight("kernel", tensor.Shape{c.filters, channels, kernel[0], kernel[1]}, G.GlorotU(1.0), c.reg); err != nil {
		return err
	}
	if c.bias {
		c.b, err = c.l.weight("bias", tensor.Shape{1, c.filters, 1, 1}, G.Zeroes(), nil)
	}
	return err
}

// conv applies the convolution to a channels first 2D input.
func (c *convCore) conv(m *maebe, x *G.Node, kernel, strides, dilation, pad []int) *G.Node {
	if m.err != nil {
		return nil
	}
	if m.err = c.init(x.Shape()[1], kernel); m.err != nil {
		return nil
	}
	var retVal *G.Node
	if c.thin {
		channels := x.Shape()[1]
		parts := make([]*G.Node, channels)
		for i := range parts {
			xi := m.sliceKeep(x, 1, i)
			wi := m.sliceKeep(c.depthwise, 0, i)
			parts[i] = m.conv(xi, wi, tensor.Shape(kernel), pad, strides, dilation)
		}
		retVal = parts[0]
		if channels > 1 {
			retVal = m.concat(1, parts...)
		}
		retVal = m.conv(retVal, c.kernel, tensor.Shape{1, 1}, []int{0, 0}, []int{1, 1}, []int{1, 1})
	} else {
		retVal = m.conv(x, c.kernel, tensor.Shape(kernel), pad, strides, dilation)
	}
	if c.bias {
		retVal = m.channelBias(retVal, c.b)
	}
	return retVal
}

// forward converts x to channels first, convolves it and converts the result back.
func (c *convCore) forward(x *G.Node, dims int) (*G.Node, error) {
	m := c.l.maebe()
	kernel, strides, dilation, pad := c.geometry(dims)
	x = m.toChannelsFirst(x, c.format)
	if dims == 1 {
		x = m.as2D(x)
	}
	retVal := c.conv(m, x, kernel, strides, dilation, pad)
	if dims == 1 {
		retVal = m.as1D(retVal)
	}
	retVal = m.fromChannelsFirst(retVal, c.format)
	return retVal, m.err
}

// subPixel convolves a 2D input into r² times the filters and folds them into an r times larger image.
func (c *convCore) subPixel(x *G.Node, r int) (*G.Node, error) {
	m := c.l.maebe()
	kernel, strides, dilation, pad := c.geometry(2)
	x = m.toChannelsFirst(x, c.format)
	retVal := phaseShift(m, c.conv(m, x, kernel, strides, dilation, pad), r)
	retVal = m.fromChannelsFirst(retVal, c.format)
	return retVal, m.err
}

// resize upsamples a 2D input r times by repetition and convolves it.
func (c *convCore) resize(x *G.Node, r int) (*G.Node, error) {
	m := c.l.maebe()
	kernel, strides, dilation, pad := c.geometry(2)
	x = m.toChannelsFirst(x, c.format)
	retVal := c.conv(m, upsample(m, x, r), kernel, strides, dilation, pad)
	retVal = m.fromChannelsFirst(retVal, c.format)
	return retVal, m.err
}

// phaseShift rearranges (B, F·r², H, W) into (B, F, H·r, W·r).
func phaseShift(m *maebe, x *G.Node, r int) *G.Node {
	if m.err != nil {
		return nil
	}
	s := x.Shape()
	if s[1]%(r*r) != 0 {
		m.err = errors.Errorf("phase shift: %d channels is not a multiple of %d", s[1], r*r)
		return nil
	}
	f := s[1] / (r * r)
	retVal := m.reshape(x, tensor.Shape{s[0], f, r, r, s[2], s[3]})
	retVal = m.transpose(retVal, 0, 1, 4, 2, 5, 3)
	return m.reshape(retVal, tensor.Shape{s[0], f, s[2] * r, s[3] * r})
}

// upsample is a nearest neighbour upsampling of a (B, C, H, W) tensor by r.
func upsample(m *maebe, x *G.Node, r int) *G.Node {
	if m.err != nil || r == 1 {
		return x
	}
	s := x.Shape()
	retVal := m.reshape(x, tensor.Shape{s[0], s[1], s[2], 1, s[3], 1})
	retVal = m.concat(5, repeat(retVal, r)...)
	retVal = m.concat(3, repeat(retVal, r)...)
	return m.reshape(retVal, tensor.Shape{s[0], s[1], s[2] * r, s[3] * r})
}

func repeat(n *G.Node, times int) []*G.Node {
	retVal := make([]*G.Node, times)
	for i := range retVal {
		retVal[i] = n
	}
	return retVal
}

func convDetail(args kwargs.Args) string {
	detail := fmt.Sprintf("f:%v, k:%v, s:%v, %v", args["filters"], args["kernel_size"], args["strides"], args["padding"])
	if dilated(args) {
		detail = fmt.Sprintf("%s, d=%v", detail, args["dilation_rate"])
	}
	return detail
}

// dilated reports whether any dilation rate, scalar or tuple, exceeds 1.
func dilated(args kwargs.Args) bool {
	for n := 1; n <= 3; n++ {
		for _, d := range args.Ints("dilation_rate", n, 1) {
			if d > 1 {
				return true
			}
		}
	}
	return false
}

// Convolution is a 1D or 2D convolution. A thin convolution is depthwise separable.
type Convolution struct {
	*base
	core *convCore
}

// NewConvolution creates a convolution of 64 3x3 filters unless told otherwise.
func NewConvolution(ctx *Context, opts kwargs.Args) (*Convolution, error) {
	l := newBase(ctx, "conv", convSchema, opts)
	core, err := newConvCore(l, l.args.Int("filters", 64))
	if err != nil {
		return nil, err
	}
	return &Convolution{base: l, core: core}, nil
}

func (l *Convolution) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	dims, err := l.spatial(x, 1, 2)
	if err != nil {
		return nil, err
	}
	return l.core.forward(x, dims)
}

func (l *Convolution) Title() string {
	if l.core.thin {
		return "thin_" + l.Name()
	}
	return l.Name()
}

func (l *Convolution) Detail() string { return convDetail(l.args) + "." }

// SubPixelConvolution upsamples by r with a convolution of r² times the filters followed by a phase shift.
type SubPixelConvolution struct {
	*base
	r    int
	core *convCore
}

// NewSubPixelConvolution creates a sub pixel convolution upsampling by r, 2 by default.
func NewSubPixelConvolution(ctx *Context, opts kwargs.Args) (*SubPixelConvolution, error) {
	l := newBase(ctx, "pixel_conv", pixelConvSchema, opts)
	r := l.args.Int("r", 2)
	core, err := newConvCore(l, r*r*l.args.Int("filters", 64))
	if err != nil {
		return nil, err
	}
	return &SubPixelConvolution{base: l, r: r, core: core}, nil
}

func (l *SubPixelConvolution) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	if _, err = l.spatial(x, 2); err != nil {
		return nil, err
	}
	return l.core.subPixel(x, l.r)
}

func (l *SubPixelConvolution) Detail() string {
	return fmt.Sprintf("%s, r=%d.", convDetail(l.args), l.r)
}

// Deconvolution upsamples a 2D input, either by sub pixel convolution or by resize convolution.
type Deconvolution struct {
	*base
	method Method
	fn     op
}

// NewDeconvolution creates a deconvolution. The method defaults to none, a resize convolution.
func NewDeconvolution(ctx *Context, opts kwargs.Args) (*Deconvolution, error) {
	l := newBase(ctx, "deconv", deconvSchema, opts)
	method := methodOf(l.args, DeconvNone)
	fn, _, err := deconvolutions.build(l, method)
	if err != nil {
		return nil, err
	}
	return &Deconvolution{base: l, method: method, fn: fn}, nil
}

// Method returns the upsampling method.
func (l *Deconvolution) Method() Method { return l.method }

func (l *Deconvolution) Apply(xs ...*G.Node) (*G.Node, error) {
	x, err := l.one(xs)
	if err != nil {
		return nil, err
	}
	if _, err = l.spatial(x, 2); err != nil {
		return nil, err
	}
	return l.fn(x)
}

func (l *Deconvolution) Title() string {
	if l.method != DeconvNone {
		return string(l.method) + "_" + l.Name()
	}
	return l.Name()
}

func (l *Deconvolution) Detail() string {
	detail := convDetail(l.args)
	if l.method == DeconvPixel {
		detail = fmt.Sprintf("%s, r=%d", detail, l.args.Int("r", 2))
	}
	return detail + "."
}

func pixelDeconv(l *base, _ kwargs.Args) (op, error) {
	r := l.args.Int("r", 2)
	core, err := newConvCore(l, r*r*l.args.Int("filters", 64))
	if err != nil {
		return nil, err
	}
	return func(xs ...*G.Node) (*G.Node, error) { return core.subPixel(xs[0], r) }, nil
}

func resizeDeconv(l *base, _ kwargs.Args) (op, error) {
	r := l.args.Int("r", 2)
	core, err := newConvCore(l, l.args.Int("filters", 64))
	if err != nil {
		return nil, err
	}
	return func(xs ...*G.Node) (*G.Node, error) { return core.resize(xs[0], r) }, nil
}
