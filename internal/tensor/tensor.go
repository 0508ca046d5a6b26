package tensor

import (
	"fmt"

	"github.com/google/uuid"
)

// Tensor is an opaque backend handle with identity, static shape and dtype.
//
// Tensors are created by a Backend. Symbolic backends additionally record
// the operation that produced the tensor and its operands, which lets tests
// and tools inspect how a value was derived.
type Tensor struct {
	id       uuid.UUID
	name     string
	op       string
	shape    Shape
	dtype    DataType
	operands []*Tensor
	variable bool
	backend  string
}

// NewTensor creates a tensor handle. Backends call this; user code obtains
// tensors from a Backend.
func NewTensor(backend, op, name string, shape Shape, dtype DataType, operands ...*Tensor) *Tensor {
	return &Tensor{
		id:       uuid.New(),
		name:     name,
		op:       op,
		shape:    shape.Clone(),
		dtype:    dtype,
		operands: operands,
		backend:  backend,
	}
}

// ID returns the identity of the tensor.
func (t *Tensor) ID() uuid.UUID {
	return t.id
}

// Name returns the tensor name (may be empty).
func (t *Tensor) Name() string {
	return t.name
}

// Op returns the operation that produced the tensor ("placeholder",
// "variable", "constant", or a layer operation name).
func (t *Tensor) Op() string {
	return t.op
}

// Shape returns a copy of the static shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// DType returns the data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// Operands returns the tensors this tensor was computed from.
func (t *Tensor) Operands() []*Tensor {
	return t.operands
}

// IsVariable reports whether the tensor is a trainable-state variable.
func (t *Tensor) IsVariable() bool {
	return t.variable
}

// MarkVariable flags the tensor as a variable. Used by backends only.
func (t *Tensor) MarkVariable() {
	t.variable = true
}

// Backend returns the name of the backend that created the tensor.
func (t *Tensor) Backend() string {
	return t.backend
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	name := t.name
	if name == "" {
		name = t.op
	}
	return fmt.Sprintf("Tensor(%s, shape=%s, dtype=%s)", name, t.shape, t.dtype)
}
