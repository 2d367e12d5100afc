package nn

import (
	"testing"

	"github.com/gorgonia/brainium/kwargs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestConvolutionShapes(t *testing.T) {
	cases := []struct {
		name  string
		input []int
		opts  kwargs.Args
		want  tensor.Shape
	}{
		{"defaults", []int{1, 3, 16, 16}, nil, tensor.Shape{1, 64, 14, 14}},
		{"same", []int{1, 3, 16, 16}, kwargs.Args{"filters": 8, "padding": "same"}, tensor.Shape{1, 8, 16, 16}},
		{"strided", []int{2, 3, 16, 16}, kwargs.Args{"filters": 8, "strides": 2, "padding": "same"}, tensor.Shape{2, 8, 8, 8}},
		{"dilated", []int{1, 3, 16, 16}, kwargs.Args{"filters": 8, "dilation": 2}, tensor.Shape{1, 8, 12, 12}},
		{"rectangular", []int{1, 3, 16, 16}, kwargs.Args{"filters": 8, "kernel": []int{1, 5}}, tensor.Shape{1, 8, 16, 12}},
		{"1D", []int{1, 3, 10}, kwargs.Args{"filters": 8}, tensor.Shape{1, 8, 8}},
		{"thin", []int{1, 3, 16, 16}, kwargs.Args{"filters": 8, "thin": true, "padding": "same"}, tensor.Shape{1, 8, 16, 16}},
		{"channels last", []int{1, 16, 16, 3}, kwargs.Args{"filters": 8, "data_format": "channels_last"}, tensor.Shape{1, 14, 14, 8}},
	}
	for _, c := range cases {
		ctx := NewContext()
		l, err := NewConvolution(ctx, c.opts)
		require.NoError(t, err, c.name)
		y, err := l.Apply(ctx.Input("", c.input...))
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, y.Shape(), c.name)
	}
}

func TestConvolutionWeights(t *testing.T) {
	ctx := NewContext()
	x := ctx.Input("", 1, 3, 8, 8)

	l, err := NewConvolution(ctx, kwargs.Args{"filters": 4})
	require.NoError(t, err)
	_, err = l.Apply(x)
	require.NoError(t, err)
	_, err = l.Apply(x)
	require.NoError(t, err)
	ws := l.Learnables()
	require.Len(t, ws, 2)
	assert.Equal(t, tensor.Shape{4, 3, 3, 3}, ws[0].Shape())
	assert.Equal(t, tensor.Shape{1, 4, 1, 1}, ws[1].Shape())
	assert.Len(t, l.Penalties(), 1, "only the kernel is regularized")

	thin, err := NewConvolution(ctx, kwargs.Args{"filters": 4, "thin": true, "bias": false})
	require.NoError(t, err)
	_, err = thin.Apply(x)
	require.NoError(t, err)
	ws = thin.Learnables()
	require.Len(t, ws, 2)
	assert.Equal(t, tensor.Shape{3, 1, 3, 3}, ws[0].Shape())
	assert.Equal(t, tensor.Shape{4, 3, 1, 1}, ws[1].Shape())
}

func TestConvolutionDims(t *testing.T) {
	ctx := NewContext()
	l, err := NewConvolution(ctx, nil)
	require.NoError(t, err)
	_, err = l.Apply(ctx.Input("", 1, 3, 4, 4, 4))
	require.Error(t, err)
	dimErr, ok := errors.Cause(err).(*DimError)
	require.True(t, ok, "%v", err)
	assert.Equal(t, 3, dimErr.Got)
	assert.Equal(t, "conv: only supports dimension 1D and 2D, got 3D", dimErr.Error())
}

func TestConvolutionBadOptions(t *testing.T) {
	ctx := NewContext()
	_, err := NewConvolution(ctx, kwargs.Args{"padding": "full"})
	require.Error(t, err)
	assert.IsType(t, &EnumError{}, errors.Cause(err))

	_, err = NewConvolution(ctx, kwargs.Args{"data_format": "channels_middle"})
	require.Error(t, err)
	assert.IsType(t, &EnumError{}, errors.Cause(err))

	_, err = NewConvolution(ctx, kwargs.Args{"filters": 0})
	require.Error(t, err)
}

func TestConvolutionTitles(t *testing.T) {
	ctx := NewContext()
	l, err := NewConvolution(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "conv", l.Title())
	assert.Equal(t, "f:64, k:3, s:1, valid.", l.Detail())

	l, err = NewConvolution(ctx, kwargs.Args{"thin": true, "dilation": 2, "padding": "same"})
	require.NoError(t, err)
	assert.Equal(t, "thin_conv_1", l.Title())
	assert.Equal(t, "f:64, k:3, s:1, same, d=2.", l.Detail())

	args := l.Args()
	assert.Equal(t, 2, args["dilation_rate"])
	assert.Equal(t, 3, args["kernel_size"])
	assert.Equal(t, true, args["use_bias"])
	assert.Equal(t, L2(4e-5), args["kernel_regularizer"])
}

func TestSubPixelConvolution(t *testing.T) {
	ctx := NewContext()
	l, err := NewSubPixelConvolution(ctx, kwargs.Args{"filters": 4, "padding": "same"})
	require.NoError(t, err)
	assert.Equal(t, "pixel_conv", l.Name())
	assert.Equal(t, "f:4, k:3, s:1, same, r=2.", l.Detail())

	y, err := l.Apply(ctx.Input("", 1, 3, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 16, 16}, y.Shape())
	assert.Equal(t, tensor.Shape{16, 3, 3, 3}, l.Learnables()[0].Shape(), "r² times the filters")

	_, err = l.Apply(ctx.Input("", 1, 3, 8))
	assert.IsType(t, &DimError{}, errors.Cause(err))
}

func TestDeconvolution(t *testing.T) {
	ctx := NewContext()
	x := ctx.Input("", 1, 3, 8, 8)

	l, err := NewDeconvolution(ctx, kwargs.Args{"filters": 4, "padding": "same"})
	require.NoError(t, err)
	assert.Equal(t, DeconvNone, l.Method())
	assert.Equal(t, "deconv", l.Title())
	assert.Equal(t, "f:4, k:3, s:1, same.", l.Detail())
	y, err := l.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 16, 16}, y.Shape())

	l, err = NewDeconvolution(ctx, kwargs.Args{"filters": 4, "padding": "same", MethodKey: "pixel", "r": 3})
	require.NoError(t, err)
	assert.Equal(t, "pixel_deconv_1", l.Title())
	assert.Equal(t, "f:4, k:3, s:1, same, r=3.", l.Detail())
	y, err = l.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 24, 24}, y.Shape())
}

func TestFindPadding(t *testing.T) {
	assert.Equal(t, 0, findPadding(1, 1))
	assert.Equal(t, 1, findPadding(3, 1))
	assert.Equal(t, 2, findPadding(3, 2))
	assert.Equal(t, 2, findPadding(5, 1))
}

func TestPhaseShiftValues(t *testing.T) {
	ctx := NewContext()
	x := valued(ctx.Graph(), "x", []float32{1, 2, 3, 4}, 1, 4, 1, 1)
	m := &maebe{dt: Float}
	y := phaseShift(m, x, 2)
	require.NoError(t, m.err)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, y.Shape())

	run(t, ctx.Graph())
	assert.InDeltaSlice(t, []float32{1, 2, 3, 4}, y.Value().Data(), 1e-6)

	phaseShift(m, valued(ctx.Graph(), "odd", []float32{1, 2, 3}, 1, 3, 1, 1), 2)
	assert.Error(t, m.err)
}

func TestUpsampleValues(t *testing.T) {
	ctx := NewContext()
	x := valued(ctx.Graph(), "x", []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	m := &maebe{dt: Float}
	y := upsample(m, x, 2)
	require.NoError(t, m.err)
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, y.Shape())

	run(t, ctx.Graph())
	assert.InDeltaSlice(t, []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}, y.Value().Data(), 1e-6)
}

func TestThinConvolutionValues(t *testing.T) {
	ctx := NewContext()
	x := valued(ctx.Graph(), "x", []float32{1, 2, 3, 4, 10, 20, 30, 40}, 1, 2, 2, 2)
	l, err := NewConvolution(ctx, kwargs.Args{"filters": 1, "kernel": 1, "thin": true})
	require.NoError(t, err)
	y, err := l.Apply(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, y.Shape())

	ws := l.Learnables()
	require.Len(t, ws, 3)
	run(t, ctx.Graph())

	// each channel is scaled by its own depthwise weight, then the channels are mixed pointwise
	d := ws[0].Value().Data().([]float32)
	p := ws[1].Value().Data().([]float32)
	in := x.Value().Data().([]float32)
	want := make([]float32, 4)
	for i := range want {
		want[i] = p[0]*d[0]*in[i] + p[1]*d[1]*in[4+i]
	}
	assert.InDeltaSlice(t, want, y.Value().Data(), 1e-4)
}
