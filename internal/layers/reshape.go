package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Flatten collapses every axis but the batch axis.
type Flatten struct {
	*engine.BaseLayer
}

// NewFlatten creates a Flatten layer.
func NewFlatten(backend tensor.Backend, opts ...engine.Option) (*Flatten, error) {
	b, err := engine.NewBaseLayer("Flatten", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetInputSpec(engine.InputSpec{MinNDim: 3})
	return &Flatten{BaseLayer: b}, nil
}

// ClassName implements engine.Layer.
func (f *Flatten) ClassName() string { return "Flatten" }

// ComputeOutputShape returns (batch, prod(rest)). The non-batch axes must be
// fully defined.
func (f *Flatten) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(f.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	rest := shape[1:]
	if !rest.IsFullyDefined() {
		return nil, fmt.Errorf("%w: layer %q: the shape of the input is not fully defined (got %s); "+
			"make sure to pass a complete input shape", engine.ErrConfiguration, f.Name(), rest)
	}
	return []tensor.Shape{{shape[0], rest.NumElements()}}, nil
}

// Call implements engine.Layer.
func (f *Flatten) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(f, "reshape", inputs, inputs[0].Value())
}

// Reshape reshapes the non-batch axes to a target shape. At most one target
// dimension may be -1 and is inferred from the input size.
type Reshape struct {
	*engine.BaseLayer
	target tensor.Shape
}

// NewReshape creates a Reshape layer.
func NewReshape(backend tensor.Backend, target tensor.Shape, opts ...engine.Option) (*Reshape, error) {
	unknown := 0
	for _, dim := range target {
		switch {
		case dim == tensor.Unknown:
			unknown++
		case dim <= 0:
			return nil, fmt.Errorf("%w: invalid target shape %s", engine.ErrConfiguration, target)
		}
	}
	if unknown > 1 {
		return nil, fmt.Errorf("%w: can only specify one unknown dimension, got %s", engine.ErrConfiguration, target)
	}
	b, err := engine.NewBaseLayer("Reshape", backend, opts...)
	if err != nil {
		return nil, err
	}
	return &Reshape{BaseLayer: b, target: target.Clone()}, nil
}

// ClassName implements engine.Layer.
func (r *Reshape) ClassName() string { return "Reshape" }

// ComputeOutputShape implements engine.Layer.
func (r *Reshape) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(r.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	target, err := r.fixUnknownDimension(shape[1:])
	if err != nil {
		return nil, err
	}
	return []tensor.Shape{append(tensor.Shape{shape[0]}, target...)}, nil
}

func (r *Reshape) fixUnknownDimension(input tensor.Shape) (tensor.Shape, error) {
	out := r.target.Clone()
	known, unknownAt := 1, -1
	for i, dim := range out {
		if dim == tensor.Unknown {
			unknownAt = i
			continue
		}
		known *= dim
	}
	total := input.NumElements()
	if total == tensor.Unknown {
		return out, nil
	}
	if unknownAt >= 0 {
		if known == 0 || total%known != 0 {
			return nil, fmt.Errorf("%w: layer %q: total size of new array must be unchanged (input %s, target %s)",
				engine.ErrConfiguration, r.Name(), input, r.target)
		}
		out[unknownAt] = total / known
	} else if total != known {
		return nil, fmt.Errorf("%w: layer %q: total size of new array must be unchanged (input %s, target %s)",
			engine.ErrConfiguration, r.Name(), input, r.target)
	}
	return out, nil
}

// Call implements engine.Layer.
func (r *Reshape) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(r, "reshape", inputs, inputs[0].Value())
}

// GetConfig implements engine.Layer.
func (r *Reshape) GetConfig() engine.Config {
	cfg := r.BaseLayer.GetConfig()
	cfg["target_shape"] = r.target.Clone()
	return cfg
}

// RepeatVector repeats a (batch, features) input n times into
// (batch, n, features).
type RepeatVector struct {
	*engine.BaseLayer
	n int
}

// NewRepeatVector creates a RepeatVector layer.
func NewRepeatVector(backend tensor.Backend, n int, opts ...engine.Option) (*RepeatVector, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: repeat count must be positive, got %d", engine.ErrConfiguration, n)
	}
	b, err := engine.NewBaseLayer("RepeatVector", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetInputSpec(engine.InputSpec{NDim: 2})
	return &RepeatVector{BaseLayer: b, n: n}, nil
}

// ClassName implements engine.Layer.
func (r *RepeatVector) ClassName() string { return "RepeatVector" }

// ComputeOutputShape implements engine.Layer.
func (r *RepeatVector) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(r.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	return []tensor.Shape{{shape[0], r.n, shape[1]}}, nil
}

// Call implements engine.Layer.
func (r *RepeatVector) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(r, "repeat", inputs, inputs[0].Value())
}

// GetConfig implements engine.Layer.
func (r *RepeatVector) GetConfig() engine.Config {
	cfg := r.BaseLayer.GetConfig()
	cfg["n"] = r.n
	return cfg
}

var (
	decodeFlatten = decoder(func(_ *reader, backend tensor.Backend, opts []engine.Option) (*Flatten, error) {
		return NewFlatten(backend, opts...)
	})

	decodeReshape = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Reshape, error) {
		target := r.shape("target_shape")
		if r.err != nil {
			return nil, r.err
		}
		return NewReshape(backend, target, opts...)
	})

	decodeRepeatVector = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*RepeatVector, error) {
		n := r.int("n", 0)
		if r.err != nil {
			return nil, r.err
		}
		return NewRepeatVector(backend, n, opts...)
	})
)
