package nn

import (
	"bytes"
	"log"

	"github.com/gorgonia/brainium/config"
	"github.com/gorgonia/brainium/naming"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Float is the default dtype of every weight and input.
var Float = G.Float32

// DefaultInputShape is the shape of an input created without one: a single 128x128 RGB image, channels first.
var DefaultInputShape = tensor.Shape{1, 3, 128, 128}

// Context owns everything that is shared by the nodes of one build: the
// expression graph, the name registry, the configuration sections and the build log.
//
// A Context is not safe for concurrent use, apart from its name registry.
type Context struct {
	g        *G.ExprGraph
	names    *naming.Registry
	sections config.Sections
	dt       tensor.Dtype

	buf    bytes.Buffer
	logger *log.Logger
}

// ContextOpt configures a Context.
type ContextOpt func(c *Context)

// WithGraph builds into g instead of a new graph.
func WithGraph(g *G.ExprGraph) ContextOpt { return func(c *Context) { c.g = g } }

// WithRegistry shares a name registry between contexts.
func WithRegistry(r *naming.Registry) ContextOpt { return func(c *Context) { c.names = r } }

// WithSections sets the configuration sections consulted by every node.
func WithSections(s config.Sections) ContextOpt { return func(c *Context) { c.sections = s } }

// WithDtype sets the dtype of weights, inputs and constants.
func WithDtype(dt tensor.Dtype) ContextOpt { return func(c *Context) { c.dt = dt } }

// WithLogger replaces the build log.
func WithLogger(l *log.Logger) ContextOpt { return func(c *Context) { c.logger = l } }

// NewContext creates a Context with a fresh graph and name registry.
func NewContext(opts ...ContextOpt) *Context {
	c := &Context{dt: Float}
	c.logger = log.New(&c.buf, "", 0)
	for _, opt := range opts {
		opt(c)
	}
	if c.g == nil {
		c.g = G.NewGraph()
	}
	if c.names == nil {
		c.names = naming.NewRegistry()
	}
	if c.sections == nil {
		c.sections = config.Sections{}
	}
	return c
}

// Graph returns the expression graph nodes are built into.
func (c *Context) Graph() *G.ExprGraph { return c.g }

// Names returns the name registry.
func (c *Context) Names() *naming.Registry { return c.names }

// Sections returns the configuration sections.
func (c *Context) Sections() config.Sections { return c.sections }

// Dtype returns the dtype of weights and inputs.
func (c *Context) Dtype() tensor.Dtype { return c.dt }

// BuildLog returns what has been logged so far. It is empty if WithLogger replaced the log.
func (c *Context) BuildLog() string { return c.buf.String() }

// Input creates an input node. An empty name is "input"; no shape means DefaultInputShape.
func (c *Context) Input(name string, shape ...int) *G.Node {
	if name == "" {
		name = "input"
	}
	if len(shape) == 0 {
		shape = DefaultInputShape.Clone()
	}
	name = c.names.Unique(name)
	c.logger.Printf("%s %v", name, tensor.Shape(shape))
	return G.NewTensor(c.g, c.dt, len(shape), G.WithShape(shape...), G.WithName(name))
}
