package nn

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	nnops "gorgonia.org/gorgonia/ops/nn"
	"gorgonia.org/tensor"
)

// maebe chains graph building calls. After the first failure every call is a no-op returning nil,
// so a whole op can be written straight through and checked once.
type maebe struct {
	dt  tensor.Dtype
	err error
}

// generic monad... may be useful
func (m *maebe) do(f func() (*G.Node, error)) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = f(); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// scalar is a constant of the maebe's dtype.
func (m *maebe) scalar(v float64) *G.Node {
	if m.dt == tensor.Float64 {
		return G.NewConstant(v)
	}
	return G.NewConstant(float32(v))
}

func (m *maebe) add(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Add(a, b) })
}

func (m *maebe) sub(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Sub(a, b) })
}

// scale multiplies every element of a by s.
func (m *maebe) scale(a *G.Node, s float64) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Mul(a, m.scalar(s)) })
}

// shift adds s to every element of a.
func (m *maebe) shift(a *G.Node, s float64) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Add(a, m.scalar(s)) })
}

func (m *maebe) hadamard(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.HadamardProd(a, b) })
}

func (m *maebe) div(a, b *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.HadamardDiv(a, b) })
}

func (m *maebe) neg(a *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Neg(a) })
}

func (m *maebe) exp(a *G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Exp(a) })
}

func (m *maebe) rectify(input *G.Node) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = nnops.Rectify(input); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// negPart is min(a, 0).
func (m *maebe) negPart(a *G.Node) *G.Node {
	return m.neg(m.rectify(m.neg(a)))
}

// minimum is the elementwise min(a, b) = a - relu(a - b).
func (m *maebe) minimum(a, b *G.Node) *G.Node {
	return m.sub(a, m.rectify(m.sub(a, b)))
}

// maximum is the elementwise max(a, b) = b + relu(a - b).
func (m *maebe) maximum(a, b *G.Node) *G.Node {
	return m.add(b, m.rectify(m.sub(a, b)))
}

// gtMask is 1 where a > v and 0 elsewhere.
func (m *maebe) gtMask(a *G.Node, v float64) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Gt(a, m.scalar(v), true) })
}

// gteMask is 1 where a >= v and 0 elsewhere.
func (m *maebe) gteMask(a *G.Node, v float64) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Gte(a, m.scalar(v), true) })
}

func (m *maebe) reshape(input *G.Node, to tensor.Shape) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = G.Reshape(input, to); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

func (m *maebe) transpose(input *G.Node, axes ...int) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Transpose(input, axes...) })
}

func (m *maebe) concat(axis int, ns ...*G.Node) *G.Node {
	return m.do(func() (*G.Node, error) { return G.Concat(axis, ns...) })
}

func (m *maebe) conv(input, filter *G.Node, kernel tensor.Shape, pad, stride, dilation []int) (retVal *G.Node) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = nnops.Conv2d(input, filter, kernel, pad, stride, dilation); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// channelBias adds a (1, C, 1, ..., 1) bias to a channels-first tensor.
func (m *maebe) channelBias(input, bias *G.Node) *G.Node {
	if m.err != nil {
		return nil
	}
	pattern := []byte{0}
	for i := 2; i < input.Dims(); i++ {
		pattern = append(pattern, byte(i))
	}
	return m.do(func() (*G.Node, error) { return G.BroadcastAdd(input, bias, nil, pattern) })
}

// toChannelsFirst moves the last axis of a channels-last tensor to axis 1.
func (m *maebe) toChannelsFirst(input *G.Node, format string) *G.Node {
	if m.err != nil || format != ChannelsLast {
		return input
	}
	dims := input.Dims()
	axes := []int{0, dims - 1}
	for i := 1; i < dims-1; i++ {
		axes = append(axes, i)
	}
	return m.transpose(input, axes...)
}

// fromChannelsFirst is the inverse of toChannelsFirst.
func (m *maebe) fromChannelsFirst(input *G.Node, format string) *G.Node {
	if m.err != nil || format != ChannelsLast {
		return input
	}
	dims := input.Dims()
	axes := []int{0}
	for i := 2; i < dims; i++ {
		axes = append(axes, i)
	}
	axes = append(axes, 1)
	return m.transpose(input, axes...)
}

// as2D lifts a (B, C, W) tensor to (B, C, 1, W) so that 1D ops can run on the 2D kernels.
func (m *maebe) as2D(input *G.Node) *G.Node {
	if m.err != nil {
		return nil
	}
	s := input.Shape()
	return m.reshape(input, tensor.Shape{s[0], s[1], 1, s[2]})
}

// as1D drops the unit height introduced by as2D.
func (m *maebe) as1D(input *G.Node) *G.Node {
	if m.err != nil {
		return nil
	}
	s := input.Shape()
	return m.reshape(input, tensor.Shape{s[0], s[1], s[3]})
}

type rs struct {
	start, end, step int
}

func (s rs) Start() int { return s.start }
func (s rs) End() int   { return s.end }
func (s rs) Step() int  { return s.step }

// sli creates a ranged slice. It takes an optional step param.
func sli(start, end int, opts ...int) rs {
	step := 1
	if len(opts) > 0 {
		step = opts[0]
	}
	return rs{
		start: start,
		end:   end,
		step:  step,
	}
}

// findPadding is the symmetric padding that keeps a stride 1 output the size of its input.
func findPadding(kernel, dilation int) int {
	return (kernel - 1) * dilation / 2
}

// sumKeep sums a along axis, keeping the axis with size 1.
func (m *maebe) sumKeep(a *G.Node, axis int) *G.Node {
	if m.err != nil {
		return nil
	}
	shape := a.Shape().Clone()
	shape[axis] = 1
	sum := m.do(func() (*G.Node, error) { return G.Sum(a, axis) })
	return m.reshape(sum, shape)
}

// normalize divides a by its L2 norm along axis.
func (m *maebe) normalize(a *G.Node, axis int) *G.Node {
	if m.err != nil {
		return nil
	}
	sq := m.do(func() (*G.Node, error) { return G.Square(a) })
	sum := m.sumKeep(sq, axis)
	norm := m.do(func() (*G.Node, error) { return G.Sqrt(sum) })
	return m.do(func() (*G.Node, error) { return G.BroadcastHadamardDiv(a, norm, nil, []byte{byte(axis)}) })
}

// sliceKeep takes entry i of axis, keeping the axis with size 1.
func (m *maebe) sliceKeep(input *G.Node, axis, i int) *G.Node {
	if m.err != nil {
		return nil
	}
	slices := make([]tensor.Slice, axis+1)
	slices[axis] = sli(i, i+1)
	shape := input.Shape().Clone()
	shape[axis] = 1
	s := m.do(func() (*G.Node, error) { return G.Slice(input, slices...) })
	return m.reshape(s, shape)
}
