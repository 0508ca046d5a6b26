package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Merge combines a list of inputs elementwise. Non-batch axes broadcast; the
// batch axis is kept when every input agrees on it.
//
// The output mask is the conjunction of the input masks that are present.
type Merge struct {
	*engine.BaseLayer
	className string
	op        string
	arity     int
}

func newMerge(backend tensor.Backend, className, op string, arity int, opts []engine.Option) (*Merge, error) {
	b, err := engine.NewBaseLayer(className, backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	return &Merge{BaseLayer: b, className: className, op: op, arity: arity}, nil
}

// NewAdd creates a layer summing its inputs.
func NewAdd(backend tensor.Backend, opts ...engine.Option) (*Merge, error) {
	return newMerge(backend, "Add", "add", 0, opts)
}

// NewSubtract creates a layer computing inputs[0] - inputs[1].
func NewSubtract(backend tensor.Backend, opts ...engine.Option) (*Merge, error) {
	return newMerge(backend, "Subtract", "subtract", 2, opts)
}

// NewMultiply creates a layer multiplying its inputs.
func NewMultiply(backend tensor.Backend, opts ...engine.Option) (*Merge, error) {
	return newMerge(backend, "Multiply", "multiply", 0, opts)
}

// NewAverage creates a layer averaging its inputs.
func NewAverage(backend tensor.Backend, opts ...engine.Option) (*Merge, error) {
	return newMerge(backend, "Average", "average", 0, opts)
}

// NewMaximum creates a layer taking the elementwise maximum of its inputs.
func NewMaximum(backend tensor.Backend, opts ...engine.Option) (*Merge, error) {
	return newMerge(backend, "Maximum", "maximum", 0, opts)
}

// NewMinimum creates a layer taking the elementwise minimum of its inputs.
func NewMinimum(backend tensor.Backend, opts ...engine.Option) (*Merge, error) {
	return newMerge(backend, "Minimum", "minimum", 0, opts)
}

// ClassName implements engine.Layer.
func (m *Merge) ClassName() string { return m.className }

// Build checks the number of inputs and that their shapes broadcast.
func (m *Merge) Build(inputShapes []tensor.Shape) error {
	_, err := m.ComputeOutputShape(inputShapes)
	return err
}

// ComputeOutputShape implements engine.Layer.
func (m *Merge) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	if len(inputShapes) < 2 {
		return nil, fmt.Errorf("%w: layer %q should be called on a list of at least 2 inputs, got %d",
			engine.ErrConfiguration, m.Name(), len(inputShapes))
	}
	if m.arity > 0 && len(inputShapes) != m.arity {
		return nil, fmt.Errorf("%w: layer %q should be called on exactly %d inputs, got %d",
			engine.ErrConfiguration, m.Name(), m.arity, len(inputShapes))
	}

	batch := tensor.Unknown
	var out tensor.Shape
	for i, shape := range inputShapes {
		if shape.Rank() == 0 {
			return nil, fmt.Errorf("%w: layer %q: input %d is a scalar", engine.ErrConfiguration, m.Name(), i)
		}
		if i == 0 {
			batch = shape[0]
			out = shape[1:].Clone()
			continue
		}
		if batch != shape[0] {
			batch = tensor.Unknown
		}
		var err error
		out, err = tensor.BroadcastShapes(out, shape[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: layer %q: operands could not be broadcast together: %w",
				engine.ErrConfiguration, m.Name(), err)
		}
	}
	return []tensor.Shape{append(tensor.Shape{batch}, out...)}, nil
}

// ComputeMask implements engine.Layer.
func (m *Merge) ComputeMask(inputs []*engine.KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error) {
	var present []*tensor.Tensor
	for _, mask := range masks {
		if mask != nil {
			present = append(present, mask)
		}
	}
	switch len(present) {
	case 0:
		return nil, nil
	case 1:
		return present, nil
	}
	return []*tensor.Tensor{m.Backend().Apply("logical_and", present[0].Shape(), tensor.Bool, present...)}, nil
}

// Call implements engine.Layer.
func (m *Merge) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(m, m.op, inputs, values(inputs)...)
}

// Concatenate joins its inputs along an axis. Every other axis must agree.
type Concatenate struct {
	*engine.BaseLayer
	axis int
}

// NewConcatenate creates a Concatenate layer. Negative axes count from the end.
func NewConcatenate(backend tensor.Backend, axis int, opts ...engine.Option) (*Concatenate, error) {
	b, err := engine.NewBaseLayer("Concatenate", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	return &Concatenate{BaseLayer: b, axis: axis}, nil
}

// ClassName implements engine.Layer.
func (c *Concatenate) ClassName() string { return "Concatenate" }

// Axis returns the concatenation axis.
func (c *Concatenate) Axis() int { return c.axis }

// Build checks that the inputs agree on all axes but the concatenation axis.
func (c *Concatenate) Build(inputShapes []tensor.Shape) error {
	_, err := c.ComputeOutputShape(inputShapes)
	return err
}

// ComputeOutputShape implements engine.Layer.
func (c *Concatenate) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	if len(inputShapes) < 2 {
		return nil, fmt.Errorf("%w: layer %q should be called on a list of at least 2 inputs, got %d",
			engine.ErrConfiguration, c.Name(), len(inputShapes))
	}
	rank := inputShapes[0].Rank()
	axis := c.axis
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis >= rank {
		return nil, fmt.Errorf("%w: layer %q: axis %d out of range for rank %d", engine.ErrConfiguration, c.Name(), c.axis, rank)
	}

	out := inputShapes[0].Clone()
	for i, shape := range inputShapes[1:] {
		if shape.Rank() != rank {
			return nil, fmt.Errorf("%w: layer %q requires inputs with matching shapes except for the concat axis, got %s",
				engine.ErrConfiguration, c.Name(), inputShapes)
		}
		for d := range shape {
			if d == axis {
				if out[d] == tensor.Unknown || shape[d] == tensor.Unknown {
					out[d] = tensor.Unknown
				} else {
					out[d] += shape[d]
				}
				continue
			}
			if out[d] == tensor.Unknown {
				out[d] = shape[d]
			} else if shape[d] != tensor.Unknown && shape[d] != out[d] {
				return nil, fmt.Errorf("%w: layer %q: input %d has shape %s, incompatible with %s on axis %d",
					engine.ErrConfiguration, c.Name(), i+1, shape, inputShapes[0], d)
			}
		}
	}
	return []tensor.Shape{out}, nil
}

// ComputeMask concatenates the masks, substituting all-true masks for the
// inputs without one, and reduces over the last axis.
func (c *Concatenate) ComputeMask(inputs []*engine.KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(masks) != len(inputs) {
		return nil, fmt.Errorf("%w: layer %q: mask and inputs should have the same length", engine.ErrConfiguration, c.Name())
	}
	masked := false
	for _, m := range masks {
		masked = masked || m != nil
	}
	if !masked {
		return nil, nil
	}

	backend := c.Backend()
	filled := make([]*tensor.Tensor, len(masks))
	for i, m := range masks {
		if m == nil {
			x := inputs[i].Value()
			m = backend.Apply("ones_like", x.Shape(), tensor.Bool, x)
		}
		filled[i] = m
	}
	outShapes, err := c.ComputeOutputShape(shapes(inputs))
	if err != nil {
		return nil, err
	}
	out := outShapes[0]
	return []*tensor.Tensor{backend.Apply("concatenate_masks", out[:out.Rank()-1], tensor.Bool, filled...)}, nil
}

// Call implements engine.Layer.
func (c *Concatenate) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(c, "concatenate", inputs, values(inputs)...)
}

// GetConfig implements engine.Layer.
func (c *Concatenate) GetConfig() engine.Config {
	cfg := c.BaseLayer.GetConfig()
	cfg["axis"] = c.axis
	return cfg
}

func decodeMerge(construct func(tensor.Backend, ...engine.Option) (*Merge, error)) engine.FromConfigFunc {
	return decoder(func(_ *reader, backend tensor.Backend, opts []engine.Option) (*Merge, error) {
		return construct(backend, opts...)
	})
}

var decodeConcatenate = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Concatenate, error) {
	axis := r.int("axis", -1)
	if r.err != nil {
		return nil, r.err
	}
	return NewConcatenate(backend, axis, opts...)
})
