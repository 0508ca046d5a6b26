package layers

import (
	"fmt"
	"slices"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Linear is the identity activation.
const Linear = "linear"

var activations = []string{
	Linear,
	"relu",
	"sigmoid",
	"hard_sigmoid",
	"tanh",
	"softmax",
	"softplus",
	"softsign",
	"elu",
	"selu",
}

// Activations returns the names accepted wherever an activation is configured.
func Activations() []string {
	return slices.Clone(activations)
}

func checkActivation(name string) error {
	if slices.Contains(activations, name) {
		return nil
	}
	return fmt.Errorf("%w: unknown activation %q", engine.ErrConfiguration, name)
}

// activate applies the named elementwise activation. The empty name and
// "linear" return x unchanged.
func activate(backend tensor.Backend, name string, x *tensor.Tensor) *tensor.Tensor {
	if name == "" || name == Linear {
		return x
	}
	return backend.Apply(name, x.Shape(), x.DType(), x)
}

func values(inputs []*engine.KerasTensor) []*tensor.Tensor {
	out := make([]*tensor.Tensor, len(inputs))
	for i, x := range inputs {
		out[i] = x.Value()
	}
	return out
}

func shapes(inputs []*engine.KerasTensor) []tensor.Shape {
	out := make([]tensor.Shape, len(inputs))
	for i, x := range inputs {
		out[i] = x.Shape()
	}
	return out
}

// single returns the only input shape or a configuration error.
func single(layer string, inputShapes []tensor.Shape) (tensor.Shape, error) {
	if len(inputShapes) != 1 {
		return nil, fmt.Errorf("%w: layer %q expects 1 input, got %d", engine.ErrConfiguration, layer, len(inputShapes))
	}
	return inputShapes[0], nil
}

// output creates the single output tensor of a layer call from its inferred
// shape.
func output(l engine.Layer, op string, inputs []*engine.KerasTensor, operands ...*tensor.Tensor) ([]*tensor.Tensor, error) {
	outShapes, err := l.ComputeOutputShape(shapes(inputs))
	if err != nil {
		return nil, err
	}
	b := l.Base()
	return []*tensor.Tensor{b.Backend().Apply(op, outShapes[0], b.DType(), operands...)}, nil
}
