package tensor

// Backend defines the tensor operations the layer-graph engine consumes.
//
// The engine never performs arithmetic itself: it creates placeholders for
// graph inputs, variables for layer weights and asks the backend to build
// output tensors of a known static shape for an operation.
//
// Implementations:
//   - symbolic: records operations and shapes without computing values
type Backend interface {
	// Name returns the backend identifier stored in serialized models.
	Name() string

	// Floatx returns the default floating point type.
	Floatx() DataType

	// Epsilon returns the fuzz factor used by numeric layers.
	Epsilon() float64

	// Placeholder creates a graph-input tensor.
	Placeholder(shape Shape, dtype DataType, name string) *Tensor

	// Variable creates a weight tensor.
	Variable(shape Shape, dtype DataType, name string) *Tensor

	// Constant creates a tensor with a fixed value.
	Constant(value float64, shape Shape, dtype DataType) *Tensor

	// Apply creates the output of an operation with a known static shape.
	Apply(op string, shape Shape, dtype DataType, operands ...*Tensor) *Tensor
}
