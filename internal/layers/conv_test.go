package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/backend/symbolic"
	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

func TestConvOutputLength(t *testing.T) {
	tests := []struct {
		length, filter  int
		padding         string
		stride, dilated int
		want            int
	}{
		{28, 3, PaddingValid, 1, 1, 26},
		{28, 3, PaddingSame, 1, 1, 28},
		{28, 3, PaddingSame, 2, 1, 14},
		{27, 3, PaddingSame, 2, 1, 14},
		{28, 3, PaddingValid, 2, 1, 13},
		{28, 3, PaddingValid, 1, 2, 24},
		{tensor.Unknown, 3, PaddingValid, 1, 1, tensor.Unknown},
		{3, 5, PaddingValid, 1, 1, 0},
		{3, 3, PaddingValid, 1, 2, 0},
		{3, 5, PaddingSame, 1, 1, 3},
	}
	for _, tt := range tests {
		got := convOutputLength(tt.length, tt.filter, tt.padding, tt.stride, tt.dilated)
		assert.Equal(t, tt.want, got, "%+v", tt)
	}
}

func TestConv2D(t *testing.T) {
	backend := newBackend()
	x := input(t, backend, 28, 28, 1)

	conv, err := NewConv2D(backend, Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}, Activation: "relu"})
	require.NoError(t, err)
	y := apply(t, conv, x)

	assert.Equal(t, batch(26, 26, 32), y.Shape())
	assert.Equal(t, tensor.NewShape(3, 3, 1, 32), conv.Kernel().Shape())
	assert.Equal(t, 3*3*32+32, engine.CountParams(conv))
	assert.Equal(t, "relu", y.Value().Op())

	same, err := NewConv2D(backend, Conv2DConfig{
		Filters:    8,
		KernelSize: [2]int{3, 3},
		Strides:    [2]int{2, 2},
		Padding:    PaddingSame,
	})
	require.NoError(t, err)
	assert.Equal(t, batch(13, 13, 8), apply(t, same, y).Shape())

	_, err = engine.Apply(conv, []*engine.KerasTensor{input(t, backend, 28, 28, 3)}, nil)
	assert.ErrorIs(t, err, engine.ErrIncompatibleInput)
}

func TestConv2D_ChannelsFirstDefault(t *testing.T) {
	backend := symbolic.New(symbolic.WithImageDataFormat(ChannelsFirst))
	x := input(t, backend, 3, 32, 32)

	conv, err := NewConv2D(backend, Conv2DConfig{Filters: 16, KernelSize: [2]int{5, 5}})
	require.NoError(t, err)
	assert.Equal(t, ChannelsFirst, conv.GetConfig()["data_format"])

	y := apply(t, conv, x)
	assert.Equal(t, batch(16, 28, 28), y.Shape())
	assert.Equal(t, tensor.NewShape(5, 5, 3, 16), conv.Kernel().Shape())

	pool, err := NewMaxPooling2D(backend, MaxPooling2DConfig{})
	require.NoError(t, err)
	assert.Equal(t, batch(16, 14, 14), apply(t, pool, y).Shape())
}

func TestConv2D_Errors(t *testing.T) {
	backend := newBackend()

	tests := map[string]Conv2DConfig{
		"no filters":     {KernelSize: [2]int{3, 3}},
		"no kernel":      {Filters: 4},
		"bad padding":    {Filters: 4, KernelSize: [2]int{3, 3}, Padding: "full"},
		"bad format":     {Filters: 4, KernelSize: [2]int{3, 3}, DataFormat: "nhwc"},
		"bad strides":    {Filters: 4, KernelSize: [2]int{3, 3}, Strides: [2]int{-1, 1}},
		"bad activation": {Filters: 4, KernelSize: [2]int{3, 3}, Activation: "gelu"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewConv2D(backend, cfg)
			assert.ErrorIs(t, err, engine.ErrConfiguration)
		})
	}

	conv, err := NewConv2D(backend, Conv2DConfig{Filters: 4, KernelSize: [2]int{5, 5}})
	require.NoError(t, err)
	_, err = engine.Apply(conv, []*engine.KerasTensor{input(t, backend, 3, 3, 1)}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestMaxPooling2D(t *testing.T) {
	backend := newBackend()
	x := input(t, backend, 26, 26, 32)

	pool, err := NewMaxPooling2D(backend, MaxPooling2DConfig{})
	require.NoError(t, err)
	assert.Equal(t, batch(13, 13, 32), apply(t, pool, x).Shape())
	assert.Equal(t, []int{2, 2}, pool.GetConfig()["strides"])

	pool, err = NewMaxPooling2D(backend, MaxPooling2DConfig{PoolSize: [2]int{3, 3}, Strides: [2]int{1, 1}, Padding: PaddingSame})
	require.NoError(t, err)
	assert.Equal(t, batch(26, 26, 32), apply(t, pool, x).Shape())
	assert.Equal(t, 0, engine.CountParams(pool))

	pool, err = NewMaxPooling2D(backend, MaxPooling2DConfig{PoolSize: [2]int{5, 5}, Strides: [2]int{1, 1}})
	require.NoError(t, err)
	small := input(t, backend, 3, 3, 1)
	_, err = engine.Apply(pool, []*engine.KerasTensor{small}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
	assert.Empty(t, pool.InboundNodes())
}
