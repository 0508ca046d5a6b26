package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

func TestFlatten(t *testing.T) {
	backend := newBackend()
	flatten, err := NewFlatten(backend)
	require.NoError(t, err)

	y := apply(t, flatten, input(t, backend, 4, 5, 2))
	assert.Equal(t, batch(40), y.Shape())

	_, err = engine.Apply(flatten, []*engine.KerasTensor{input(t, backend, 4)}, nil)
	assert.ErrorIs(t, err, engine.ErrIncompatibleInput)

	_, err = engine.Apply(flatten, []*engine.KerasTensor{input(t, backend, tensor.Unknown, 3)}, nil)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestReshape(t *testing.T) {
	backend := newBackend()

	tests := []struct {
		name   string
		in     []int
		target tensor.Shape
		want   tensor.Shape
		err    error
	}{
		{"explicit", []int{6}, tensor.NewShape(2, 3), batch(2, 3), nil},
		{"inferred", []int{12}, tensor.NewShape(3, tensor.Unknown), batch(3, 4), nil},
		{"unknown input", []int{tensor.Unknown, 4}, tensor.NewShape(tensor.Unknown, 2), batch(tensor.Unknown, 2), nil},
		{"size mismatch", []int{7}, tensor.NewShape(2, 3), nil, engine.ErrConfiguration},
		{"not divisible", []int{7}, tensor.NewShape(2, tensor.Unknown), nil, engine.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReshape(backend, tt.target)
			require.NoError(t, err)
			out, err := engine.Apply(r, []*engine.KerasTensor{input(t, backend, tt.in...)}, nil)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out[0].Shape())
		})
	}

	_, err := NewReshape(backend, tensor.NewShape(tensor.Unknown, tensor.Unknown))
	assert.ErrorIs(t, err, engine.ErrConfiguration)
	_, err = NewReshape(backend, tensor.NewShape(0, 2))
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestRepeatVector(t *testing.T) {
	backend := newBackend()
	rv, err := NewRepeatVector(backend, 3)
	require.NoError(t, err)

	y := apply(t, rv, input(t, backend, 4))
	assert.Equal(t, batch(3, 4), y.Shape())
	assert.Equal(t, 3, rv.GetConfig()["n"])

	_, err = engine.Apply(rv, []*engine.KerasTensor{input(t, backend, 2, 4)}, nil)
	assert.ErrorIs(t, err, engine.ErrIncompatibleInput)

	_, err = NewRepeatVector(backend, 0)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}
