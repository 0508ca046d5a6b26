package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

func TestMerge_Shapes(t *testing.T) {
	backend := newBackend()

	constructors := map[string]func(tensor.Backend, ...engine.Option) (*Merge, error){
		"Add":      NewAdd,
		"Subtract": NewSubtract,
		"Multiply": NewMultiply,
		"Average":  NewAverage,
		"Maximum":  NewMaximum,
		"Minimum":  NewMinimum,
	}
	for class, construct := range constructors {
		t.Run(class, func(t *testing.T) {
			m, err := construct(backend)
			require.NoError(t, err)
			assert.Equal(t, class, m.ClassName())

			y := apply(t, m, input(t, backend, 4, 1), input(t, backend, 1, 3))
			assert.Equal(t, batch(4, 3), y.Shape())
		})
	}
}

func TestMerge_Errors(t *testing.T) {
	backend := newBackend()

	add, err := NewAdd(backend)
	require.NoError(t, err)
	_, err = engine.Apply(add, []*engine.KerasTensor{input(t, backend, 3)}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	add, err = NewAdd(backend)
	require.NoError(t, err)
	_, err = engine.Apply(add, []*engine.KerasTensor{input(t, backend, 3), input(t, backend, 4)}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	sub, err := NewSubtract(backend)
	require.NoError(t, err)
	x := input(t, backend, 3)
	_, err = engine.Apply(sub, []*engine.KerasTensor{x, x, x}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestMerge_BatchAxis(t *testing.T) {
	backend := newBackend()
	a, err := engine.Input(backend, engine.WithInputShape(3), engine.WithBatchSize(8))
	require.NoError(t, err)
	b, err := engine.Input(backend, engine.WithInputShape(3), engine.WithBatchSize(8))
	require.NoError(t, err)
	c := input(t, backend, 3)

	add, err := NewAdd(backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.NewShape(8, 3), apply(t, add, a, b).Shape())
	assert.Equal(t, batch(3), apply(t, add, a, c).Shape())
}

func TestMerge_Masks(t *testing.T) {
	backend := newBackend()
	ids := input(t, backend, 6)
	emb, err := NewEmbedding(backend, EmbeddingConfig{InputDim: 20, OutputDim: 4, MaskZero: true})
	require.NoError(t, err)
	masked := apply(t, emb, ids)

	dense, err := NewDense(backend, DenseConfig{Units: 4})
	require.NoError(t, err)
	plain := apply(t, dense, input(t, backend, 6, 2))
	require.Nil(t, plain.Mask())

	add, err := NewAdd(backend)
	require.NoError(t, err)
	y := apply(t, add, masked, plain)
	assert.Same(t, masked.Mask(), y.Mask())

	mul, err := NewMultiply(backend)
	require.NoError(t, err)
	z := apply(t, mul, masked, y)
	require.NotNil(t, z.Mask())
	assert.Equal(t, "logical_and", z.Mask().Op())

	avg, err := NewAverage(backend)
	require.NoError(t, err)
	assert.Nil(t, apply(t, avg, plain, plain).Mask())
}

func TestConcatenate(t *testing.T) {
	backend := newBackend()

	concat, err := NewConcatenate(backend, -1)
	require.NoError(t, err)
	y := apply(t, concat, input(t, backend, 2, 3), input(t, backend, 2, 5))
	assert.Equal(t, batch(2, 8), y.Shape())
	assert.Nil(t, y.Mask())

	concat, err = NewConcatenate(backend, 1)
	require.NoError(t, err)
	y = apply(t, concat, input(t, backend, 2, 3), input(t, backend, tensor.Unknown, 3))
	assert.Equal(t, batch(tensor.Unknown, 3), y.Shape())

	concat, err = NewConcatenate(backend, -1)
	require.NoError(t, err)
	_, err = engine.Apply(concat, []*engine.KerasTensor{input(t, backend, 2, 3), input(t, backend, 4, 3)}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	concat, err = NewConcatenate(backend, 3)
	require.NoError(t, err)
	_, err = engine.Apply(concat, []*engine.KerasTensor{input(t, backend, 2), input(t, backend, 2)}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestConcatenate_Masks(t *testing.T) {
	backend := newBackend()
	emb, err := NewEmbedding(backend, EmbeddingConfig{InputDim: 20, OutputDim: 4, MaskZero: true})
	require.NoError(t, err)
	masked := apply(t, emb, input(t, backend, 6))
	plain := input(t, backend, 6, 2)

	concat, err := NewConcatenate(backend, -1)
	require.NoError(t, err)
	y := apply(t, concat, masked, plain)

	assert.Equal(t, batch(6, 6), y.Shape())
	require.NotNil(t, y.Mask())
	assert.Equal(t, batch(6), y.Mask().Shape())
	assert.Equal(t, 1, backend.OpCount("ones_like"))
}
