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

func TestMergeShapes(t *testing.T) {
	cases := []struct {
		opts   kwargs.Args
		inputs int
		want   tensor.Shape
	}{
		{nil, 3, tensor.Shape{2, 4}},
		{kwargs.Args{MethodKey: "sub"}, 2, tensor.Shape{2, 4}},
		{kwargs.Args{MethodKey: "mul"}, 2, tensor.Shape{2, 4}},
		{kwargs.Args{MethodKey: "min"}, 3, tensor.Shape{2, 4}},
		{kwargs.Args{MethodKey: "max"}, 2, tensor.Shape{2, 4}},
		{kwargs.Args{MethodKey: "concat"}, 3, tensor.Shape{2, 12}},
		{kwargs.Args{MethodKey: "concat", "axis": 0}, 2, tensor.Shape{4, 4}},
		{kwargs.Args{MethodKey: "dot"}, 2, tensor.Shape{2, 1}},
		{kwargs.Args{MethodKey: "dot", "normalize": true}, 2, tensor.Shape{2, 1}},
	}
	for i, c := range cases {
		ctx := NewContext()
		xs := make([]*G.Node, c.inputs)
		for j := range xs {
			xs[j] = ctx.Input("x", 2, 4)
		}
		l, err := NewMerge(ctx, c.opts)
		require.NoError(t, err, "case %d", i)
		y, err := l.Apply(xs...)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, c.want, y.Shape(), "case %d", i)
	}
}

func TestMergeArity(t *testing.T) {
	ctx := NewContext()
	x := ctx.Input("x", 2, 4)
	for _, m := range MergeMethods() {
		l, err := NewMerge(ctx, kwargs.Args{MethodKey: string(m)})
		require.NoError(t, err)
		_, err = l.Apply(x)
		assert.IsType(t, &ArityError{}, errors.Cause(err), "%s", m)
	}

	l, err := NewMerge(ctx, kwargs.Args{MethodKey: "sub"})
	require.NoError(t, err)
	_, err = l.Apply(x, x, x)
	assert.IsType(t, &ArityError{}, errors.Cause(err))
}

func TestMergeTitles(t *testing.T) {
	ctx := NewContext()
	l, err := NewMerge(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "add_merge", l.Title())
	assert.Equal(t, "method: add", l.Detail())

	l, err = NewMerge(ctx, kwargs.Args{MethodKey: "concat", "axis": 1})
	require.NoError(t, err)
	assert.Equal(t, "concat_merge_1", l.Title())
	assert.Equal(t, 1, l.Args()["axis"])
}

func TestMergeDotAxes(t *testing.T) {
	ctx := NewContext()
	_, err := NewMerge(ctx, kwargs.Args{MethodKey: "dot", "axes": []int{1, 2}})
	require.Error(t, err)
}

func TestMergeMax(t *testing.T) {
	ctx := NewContext()
	g := ctx.Graph()
	a := G.NewTensor(g, Float, 1, G.WithShape(3), G.WithName("a"),
		G.WithValue(tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{1, 5, -2}))))
	b := G.NewTensor(g, Float, 1, G.WithShape(3), G.WithName("b"),
		G.WithValue(tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{3, 4, -1}))))
	l, err := NewMerge(ctx, kwargs.Args{MethodKey: "max"})
	require.NoError(t, err)
	y, err := l.Apply(a, b)
	require.NoError(t, err)

	m := G.NewTapeMachine(g)
	defer m.Close()
	require.NoError(t, m.RunAll())
	assert.InDeltaSlice(t, []float32{3, 5, -1}, y.Value().Data(), 1e-6)
}
