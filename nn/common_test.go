package nn

import (
	"testing"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestDense(t *testing.T) {
	ctx := NewContext()
	l, err := NewDense(ctx, kwargs.Args{"units": 3, "weight_decay": 1e-4})
	require.NoError(t, err)
	assert.Equal(t, "dense", l.Name())
	assert.Equal(t, "units: 3", l.Detail())
	assert.Equal(t, true, l.Args()["use_bias"])

	y, err := l.Apply(ctx.Input("", 2, 5))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, y.Shape())

	ws := l.Learnables()
	require.Len(t, ws, 2)
	assert.Equal(t, tensor.Shape{5, 3}, ws[0].Shape())
	assert.Equal(t, tensor.Shape{1, 3}, ws[1].Shape())
	assert.Len(t, l.Penalties(), 1, "the bias is not regularized")

	// a second application shares the weights
	_, err = l.Apply(ctx.Input("", 4, 5))
	require.NoError(t, err)
	assert.Len(t, l.Learnables(), 2)

	_, err = l.Apply(ctx.Input("", 2, 3, 4, 4))
	assert.IsType(t, &DimError{}, errors.Cause(err))
}

func TestDenseOptions(t *testing.T) {
	ctx := NewContext()
	l, err := NewDense(ctx, kwargs.Args{"bias": false})
	require.NoError(t, err)
	_, err = l.Apply(ctx.Input("", 1, 8))
	require.NoError(t, err)
	assert.Len(t, l.Learnables(), 1)
	assert.Empty(t, l.Penalties())

	_, err = NewDense(ctx, kwargs.Args{"units": 0})
	assert.Error(t, err)
	_, err = NewDense(ctx, kwargs.Args{"weight_decay": "lots"})
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	ctx := NewContext()
	g := ctx.Graph()
	x := G.NewTensor(g, Float, 3, G.WithShape(2, 2, 2), G.WithName("x"),
		G.WithValue(tensor.New(tensor.WithShape(2, 2, 2), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6, 7, 8}))))
	l, err := NewFlatten(ctx, nil)
	require.NoError(t, err)
	y, err := l.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4}, y.Shape())
	assert.Empty(t, l.Learnables())

	m := G.NewTapeMachine(g)
	defer m.Close()
	require.NoError(t, m.RunAll())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, y.Value().Data())

	_, err = l.Apply(ctx.Input("", 4))
	assert.Error(t, err)
	_, err = l.Apply()
	assert.IsType(t, &ArityError{}, errors.Cause(err))
}

// valued is an input of the given shape holding data.
func valued(g *G.ExprGraph, name string, data []float32, shape ...int) *G.Node {
	return G.NewTensor(g, Float, len(shape), G.WithShape(shape...), G.WithName(name),
		G.WithValue(tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))))
}

func run(t *testing.T, g *G.ExprGraph) {
	m := G.NewTapeMachine(g)
	defer m.Close()
	require.NoError(t, m.RunAll())
}
