package engine

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// InputSpec constrains the dtype, rank and shape of one layer input.
// Zero-valued fields are unconstrained; Unknown entries in Shape match any
// dimension.
type InputSpec struct {
	DType   *tensor.DataType
	Shape   tensor.Shape
	NDim    int
	MinNDim int
	MaxNDim int
	// Axes maps an axis (negative counts from the end) to a required size.
	Axes map[int]int
}

// String implements fmt.Stringer.
func (s InputSpec) String() string {
	out := "InputSpec("
	sep := ""
	if s.DType != nil {
		out += fmt.Sprintf("dtype=%s", *s.DType)
		sep = ", "
	}
	if s.Shape != nil {
		out += fmt.Sprintf("%sshape=%s", sep, s.Shape)
		sep = ", "
	}
	if s.NDim != 0 {
		out += fmt.Sprintf("%sndim=%d", sep, s.NDim)
		sep = ", "
	}
	if s.MinNDim != 0 {
		out += fmt.Sprintf("%smin_ndim=%d", sep, s.MinNDim)
		sep = ", "
	}
	if s.MaxNDim != 0 {
		out += fmt.Sprintf("%smax_ndim=%d", sep, s.MaxNDim)
		sep = ", "
	}
	if len(s.Axes) != 0 {
		out += fmt.Sprintf("%saxes=%v", sep, s.Axes)
	}
	return out + ")"
}

// checkInputSpec validates inputs against the layer's declared specs.
func checkInputSpec(layer Layer, inputs []*KerasTensor) error {
	b := layer.Base()
	specs := b.inputSpec
	if len(specs) == 0 {
		return nil
	}
	if len(specs) != len(inputs) {
		return newError(ErrIncompatibleInput, b.name,
			"expects %d inputs, but it received %d input tensors", len(specs), len(inputs))
	}
	for i, spec := range specs {
		x := inputs[i]
		shape := x.Shape()
		rank := shape.Rank()

		if spec.NDim != 0 && rank != spec.NDim {
			return newError(ErrIncompatibleInput, b.name,
				"input %d is incompatible: expected ndim=%d, found ndim=%d", i, spec.NDim, rank)
		}
		if spec.MaxNDim != 0 && rank > spec.MaxNDim {
			return newError(ErrIncompatibleInput, b.name,
				"input %d is incompatible: expected max_ndim=%d, found ndim=%d", i, spec.MaxNDim, rank)
		}
		if spec.MinNDim != 0 && rank < spec.MinNDim {
			return newError(ErrIncompatibleInput, b.name,
				"input %d is incompatible: expected min_ndim=%d, found ndim=%d", i, spec.MinNDim, rank)
		}
		if spec.DType != nil && x.DType() != *spec.DType {
			return newError(ErrIncompatibleInput, b.name,
				"input %d is incompatible: expected dtype=%s, found dtype=%s", i, *spec.DType, x.DType())
		}
		for axis, want := range spec.Axes {
			pos := axis
			if pos < 0 {
				pos += rank
			}
			if pos < 0 || pos >= rank {
				return newError(ErrIncompatibleInput, b.name,
					"input %d is incompatible: axis %d out of range for shape %s", i, axis, shape)
			}
			if got := shape[pos]; got != tensor.Unknown && got != want {
				return newError(ErrIncompatibleInput, b.name,
					"input %d is incompatible: expected axis %d to have value %d, found shape %s", i, axis, want, shape)
			}
		}
		if spec.Shape != nil && !spec.Shape.Compatible(shape) {
			return newError(ErrIncompatibleInput, b.name,
				"input %d is incompatible: expected shape=%s, found shape=%s", i, spec.Shape, shape)
		}
	}
	return nil
}
