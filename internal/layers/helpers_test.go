package layers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/backend/symbolic"
	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

func input(t *testing.T, backend tensor.Backend, dims ...int) *engine.KerasTensor {
	t.Helper()
	x, err := engine.Input(backend, engine.WithInputShape(dims...))
	require.NoError(t, err)
	return x
}

func apply(t *testing.T, layer engine.Layer, inputs ...*engine.KerasTensor) *engine.KerasTensor {
	t.Helper()
	out, err := engine.Apply(layer, inputs, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

func batch(dims ...int) tensor.Shape {
	return append(tensor.Shape{tensor.Unknown}, dims...)
}

func newBackend() *symbolic.Backend {
	return symbolic.New()
}
