package nn

import (
	"fmt"

	"github.com/gorgonia/brainium/config"
	"github.com/gorgonia/brainium/kwargs"
	"github.com/gorgonia/brainium/naming"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Network builds the body of a model on x, with the model's resolved options.
// Layers must be applied through m.Call so that the model can replay, trim and connect them.
type Network func(m *Model, x *G.Node, args kwargs.Args) (*G.Node, error)

// step is one recorded layer application. Inputs index Model.nodes.
type step struct {
	layer  Layer
	inputs []int
}

// Model is a named graph of layer applications from one input to one output.
//
// Node 0 is the input, node i is the output of step i-1. A Model is a Layer itself:
// applying it to another node replays its steps there, sharing their weights.
type Model struct {
	ctx  *Context
	term naming.Term
	opts kwargs.Args
	args kwargs.Args

	nodes  []*G.Node
	steps  []step
	output int
}

// NewModel names a model, resolves its options against schema and runs network on input.
// A nil input is a fresh input of DefaultInputShape.
func NewModel(ctx *Context, input *G.Node, schema kwargs.Schema, opts kwargs.Args, network Network) (*Model, error) {
	m := newModel(ctx, "Model", opts)
	m.args = schema.Resolve(m.overrides(), true)
	if input == nil {
		input = ctx.Input("")
	}
	m.nodes = []*G.Node{input}

	out, err := network(m, input, m.args.Clone())
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: network", m.Name())
	}
	if m.output = m.indexOf(out); m.output < 0 {
		return nil, errors.Errorf("%s: the output of the network was not produced by one of its layers", m.Name())
	}
	m.logf("%d layers, output %v", len(m.steps), out.Shape())
	return m, nil
}

// Sequential chains layers, each applied to the output of the previous one.
func Sequential(ctx *Context, input *G.Node, opts kwargs.Args, layers ...Layer) (*Model, error) {
	return NewModel(ctx, input, kwargs.New(), opts, func(m *Model, x *G.Node, _ kwargs.Args) (retVal *G.Node, err error) {
		retVal = x
		for _, l := range layers {
			if retVal, err = m.Call(l, retVal); err != nil {
				return nil, err
			}
		}
		return retVal, nil
	})
}

func newModel(ctx *Context, kind string, opts kwargs.Args) *Model {
	return &Model{
		ctx:  ctx,
		term: ctx.names.Term(kind, opts.String(NameKey, ""), opts.String(PrefixKey, "")),
		opts: opts,
		args: kwargs.Args{},
	}
}

func (m *Model) overrides() kwargs.Args {
	names := []string{m.term.Basename(), m.term.Fullname()}
	return kwargs.Merge(m.ctx.sections.Lookup(names...), config.Embedded(m.opts, names...), m.opts)
}

func (m *Model) logf(format string, args ...interface{}) {
	m.ctx.logger.Printf("%s "+format, append([]interface{}{m.term.Fullname()}, args...)...)
}

// Opts returns the options of a layer built inside the model: the model name as prefix,
// the sections embedded in the model options, then extra.
func (m *Model) Opts(extra kwargs.Args) kwargs.Args {
	retVal := kwargs.Args{PrefixKey: m.Name()}
	if m.opts.Has(config.ConfKey) {
		for k, v := range m.opts {
			if _, ok := kwargs.AsArgs(v); ok || k == config.ConfKey {
				retVal[k] = v
			}
		}
	}
	for k, v := range extra {
		retVal[k] = v
	}
	return retVal
}

// Call applies l to xs, which must be nodes of the model, and records the application.
func (m *Model) Call(l Layer, xs ...*G.Node) (*G.Node, error) {
	inputs := make([]int, len(xs))
	for i, x := range xs {
		if inputs[i] = m.indexOf(x); inputs[i] < 0 {
			return nil, errors.Errorf("%s: input %d of %s is not a node of the model", m.Name(), i, l.Name())
		}
	}
	out, err := l.Apply(xs...)
	if err != nil {
		return nil, err
	}
	m.record(l, inputs, out)
	return out, nil
}

func (m *Model) record(l Layer, inputs []int, out *G.Node) {
	m.steps = append(m.steps, step{layer: l, inputs: inputs})
	m.nodes = append(m.nodes, out)
}

func (m *Model) indexOf(n *G.Node) int {
	if n == nil {
		return -1
	}
	for i := len(m.nodes) - 1; i >= 0; i-- {
		if m.nodes[i] == n {
			return i
		}
	}
	return -1
}

// Context returns the context the model is built in.
func (m *Model) Context() *Context { return m.ctx }

func (m *Model) Term() naming.Term { return m.term }
func (m *Model) Name() string      { return m.term.Fullname() }
func (m *Model) Args() kwargs.Args { return m.args.Clone() }
func (m *Model) Title() string     { return m.term.Fullname() }
func (m *Model) Detail() string    { return fmt.Sprintf("layers: %d", len(m.steps)) }

// Input returns the input node.
func (m *Model) Input() *G.Node { return m.nodes[0] }

// Output returns the output node.
func (m *Model) Output() *G.Node { return m.nodes[m.output] }

// Layers returns the applied layers in order. A layer applied twice appears twice.
func (m *Model) Layers() []Layer {
	retVal := make([]Layer, len(m.steps))
	for i := range m.steps {
		retVal[i] = m.steps[i].layer
	}
	return retVal
}

// Learnables returns the weights of every layer, once each.
func (m *Model) Learnables() G.Nodes {
	var retVal G.Nodes
	seen := make(map[*G.Node]struct{})
	for _, l := range m.unique() {
		for _, w := range l.Learnables() {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				retVal = append(retVal, w)
			}
		}
	}
	return retVal
}

// Penalties returns the regularization penalties of every layer, once each.
func (m *Model) Penalties() G.Nodes {
	var retVal G.Nodes
	for _, l := range m.unique() {
		retVal = append(retVal, l.Penalties()...)
	}
	return retVal
}

// Penalty is the sum of all the penalties, to be added to a cost. It is nil when there are none.
func (m *Model) Penalty() (*G.Node, error) {
	ps := m.Penalties()
	switch len(ps) {
	case 0:
		return nil, nil
	case 1:
		return ps[0], nil
	}
	retVal, err := G.ReduceAdd(ps)
	return retVal, errors.WithStack(err)
}

func (m *Model) unique() []Layer {
	var retVal []Layer
	seen := make(map[Layer]struct{})
	for _, s := range m.steps {
		if _, ok := seen[s.layer]; !ok {
			seen[s.layer] = struct{}{}
			retVal = append(retVal, s.layer)
		}
	}
	return retVal
}

// Apply replays the model on x. Weights are shared with the first application.
func (m *Model) Apply(xs ...*G.Node) (*G.Node, error) {
	if len(xs) != 1 || xs[0] == nil {
		return nil, errors.WithStack(&ArityError{Layer: m.Name(), Got: len(xs), Min: 1, Max: 1})
	}
	nodes := make([]*G.Node, len(m.nodes))
	nodes[0] = xs[0]
	for i, s := range m.steps {
		ins := make([]*G.Node, len(s.inputs))
		for j, k := range s.inputs {
			ins[j] = nodes[k]
		}
		out, err := s.layer.Apply(ins...)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: replaying %s", m.Name(), s.layer.Name())
		}
		nodes[i+1] = out
	}
	return nodes[m.output], nil
}

// node resolves a possibly negative node index.
func (m *Model) node(i int) (int, error) {
	if i < 0 {
		i += len(m.nodes)
	}
	if i < 0 || i >= len(m.nodes) {
		return 0, errors.Errorf("%s: node %d out of range [0, %d)", m.Name(), i, len(m.nodes))
	}
	return i, nil
}

// Trim packs the layers between nodes start and end into a new model. Node 0 is the
// input and node i the output of the i-th layer; negative indices count from the end.
// The trimmed layers must only depend on start and later nodes.
func (m *Model) Trim(start, end int, name string) (*Model, error) {
	var err error
	if start, err = m.node(start); err != nil {
		return nil, err
	}
	if end, err = m.node(end); err != nil {
		return nil, err
	}
	if start > end {
		return nil, errors.Errorf("%s: cannot trim from node %d to node %d", m.Name(), start, end)
	}

	retVal := newModel(m.ctx, "Model", kwargs.Args{NameKey: name})
	retVal.nodes = []*G.Node{m.nodes[start]}
	for _, s := range m.steps[start:end] {
		inputs := make([]int, len(s.inputs))
		for j, k := range s.inputs {
			if k < start {
				return nil, errors.Errorf("%s: %s depends on node %d, before node %d", m.Name(), s.layer.Name(), k, start)
			}
			inputs[j] = k - start
		}
		retVal.record(s.layer, inputs, m.nodes[len(retVal.nodes)+start])
	}
	retVal.output = end - start
	retVal.logf("trimmed from %s [%d, %d]", m.Name(), start, end)
	return retVal, nil
}

// Connect feeds the output of a into b. The result runs from the input of a to the output of
// b replayed on it; b's weights are shared.
func Connect(a, b *Model, name string) (*Model, error) {
	if a == nil || b == nil {
		return nil, errors.New("both models must be given to be connected")
	}
	if a.ctx != b.ctx {
		return nil, errors.Errorf("cannot connect %s and %s built in different contexts", a.Name(), b.Name())
	}
	retVal := newModel(a.ctx, "Model", kwargs.Args{NameKey: name})
	retVal.nodes = append(retVal.nodes, a.nodes...)
	retVal.steps = append(retVal.steps, a.steps...)

	mapping := make([]int, len(b.nodes))
	mapping[0] = a.output
	for i, s := range b.steps {
		inputs := make([]int, len(s.inputs))
		ins := make([]*G.Node, len(s.inputs))
		for j, k := range s.inputs {
			inputs[j] = mapping[k]
			ins[j] = retVal.nodes[mapping[k]]
		}
		out, err := s.layer.Apply(ins...)
		if err != nil {
			return nil, errors.WithMessagef(err, "connecting %s to %s", b.Name(), a.Name())
		}
		retVal.record(s.layer, inputs, out)
		mapping[i+1] = len(retVal.nodes) - 1
	}
	retVal.output = mapping[b.output]
	retVal.logf("%s -> %s", a.Name(), b.Name())
	return retVal, nil
}
