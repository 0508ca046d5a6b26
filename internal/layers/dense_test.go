package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

func TestDense(t *testing.T) {
	backend := newBackend()
	x := input(t, backend, 784)

	dense, err := NewDense(backend, DenseConfig{Units: 64, Activation: "relu"})
	require.NoError(t, err)
	y := apply(t, dense, x)

	assert.Equal(t, batch(64), y.Shape())
	assert.Equal(t, "relu", y.Value().Op())
	assert.Equal(t, tensor.NewShape(784, 64), dense.Kernel().Shape())
	assert.Equal(t, tensor.NewShape(64), dense.Bias().Shape())
	assert.Equal(t, 784*64+64, engine.CountParams(dense))
	assert.Equal(t, 1, backend.OpCount("matmul"))
	assert.Equal(t, 1, backend.OpCount("bias_add"))
}

func TestDense_NoBiasLinear(t *testing.T) {
	backend := newBackend()
	dense, err := NewDense(backend, DenseConfig{Units: 3, NoBias: true})
	require.NoError(t, err)

	y := apply(t, dense, input(t, backend, 5, 4))
	assert.Equal(t, batch(5, 3), y.Shape())
	assert.Nil(t, dense.Bias())
	assert.Equal(t, "matmul", y.Value().Op())

	cfg := dense.GetConfig()
	assert.Equal(t, "linear", cfg["activation"])
	assert.Equal(t, false, cfg["use_bias"])
}

func TestDense_Errors(t *testing.T) {
	backend := newBackend()

	_, err := NewDense(backend, DenseConfig{Units: 0})
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	_, err = NewDense(backend, DenseConfig{Units: 2, Activation: "swishy"})
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	t.Run("incompatible after build", func(t *testing.T) {
		dense, err := NewDense(backend, DenseConfig{Units: 2})
		require.NoError(t, err)
		apply(t, dense, input(t, backend, 4))

		_, err = engine.Apply(dense, []*engine.KerasTensor{input(t, backend, 5)}, nil)
		assert.ErrorIs(t, err, engine.ErrIncompatibleInput)
		assert.Len(t, dense.InboundNodes(), 1)
	})

	t.Run("rank 1 input", func(t *testing.T) {
		dense, err := NewDense(backend, DenseConfig{Units: 2})
		require.NoError(t, err)
		x, err := engine.Input(backend, engine.WithBatchInputShape(tensor.NewShape(4)))
		require.NoError(t, err)

		_, err = engine.Apply(dense, []*engine.KerasTensor{x}, nil)
		assert.ErrorIs(t, err, engine.ErrIncompatibleInput)
	})

	t.Run("undefined last axis", func(t *testing.T) {
		dense, err := NewDense(backend, DenseConfig{Units: 2})
		require.NoError(t, err)

		_, err = engine.Apply(dense, []*engine.KerasTensor{input(t, backend, tensor.Unknown)}, nil)
		assert.ErrorIs(t, err, engine.ErrConfiguration)
		assert.False(t, dense.Built())
	})
}

func TestDense_Trainable(t *testing.T) {
	backend := newBackend()
	dense, err := NewDense(backend, DenseConfig{Units: 2}, engine.WithTrainable(false))
	require.NoError(t, err)
	apply(t, dense, input(t, backend, 3))

	assert.Empty(t, dense.TrainableWeights())
	assert.Len(t, dense.NonTrainableWeights(), 2)
}
