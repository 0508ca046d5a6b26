package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensor(t *testing.T) {
	x := NewTensor("symbolic", "placeholder", "x", Shape{Unknown, 3}, Float32)
	y := NewTensor("symbolic", "relu", "", Shape{Unknown, 3}, Float32, x)

	assert.NotEqual(t, x.ID(), y.ID())
	assert.Equal(t, "Tensor(x, shape=(None, 3), dtype=float32)", x.String())
	assert.Equal(t, "Tensor(relu, shape=(None, 3), dtype=float32)", y.String())
	assert.Equal(t, []*Tensor{x}, y.Operands())
	assert.Equal(t, "symbolic", y.Backend())
	assert.False(t, x.IsVariable())

	shape := x.Shape()
	shape[1] = 7
	assert.Equal(t, Shape{Unknown, 3}, x.Shape())
}

func TestDataType(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Float16, Int32, Int64, Uint8, Bool} {
		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
	}
	_, err := ParseDataType("complex64")
	assert.Error(t, err)

	assert.True(t, Float16.IsFloat())
	assert.False(t, Int32.IsFloat())
	assert.Equal(t, 8, Float64.Size())
}
