package engine

import "github.com/Tusespifump1o/keras/internal/tensor"

// Weight is a variable owned by a layer.
//
// Weights are created through BaseLayer.AddWeight; whether a weight is reported
// as trainable also depends on the trainable flag of its owner.
type Weight struct {
	name      string
	tensor    *tensor.Tensor
	trainable bool
}

// NewWeight wraps a backend variable.
func NewWeight(name string, t *tensor.Tensor, trainable bool) *Weight {
	t.MarkVariable()
	return &Weight{
		name:      name,
		tensor:    t,
		trainable: trainable,
	}
}

// Name returns the weight name (e.g. "kernel", "bias").
func (w *Weight) Name() string {
	return w.name
}

// Tensor returns the backend variable.
func (w *Weight) Tensor() *tensor.Tensor {
	return w.tensor
}

// Shape returns the variable shape.
func (w *Weight) Shape() tensor.Shape {
	return w.tensor.Shape()
}

// Trainable reports whether the weight was declared trainable.
func (w *Weight) Trainable() bool {
	return w.trainable
}
