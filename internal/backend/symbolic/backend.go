// Package symbolic implements a backend that tracks shapes, dtypes and
// operation provenance without computing any values.
//
// It is the backend used to construct, resolve and serialize layer graphs.
// Numeric execution is delegated to real compute backends.
package symbolic

import (
	"fmt"

	sync "github.com/sasha-s/go-deadlock"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Name is the backend identifier written into serialized models.
const Name = "symbolic"

// DefaultEpsilon matches the fuzz factor of the reference framework.
const DefaultEpsilon = 1e-7

// Backend implements tensor.Backend symbolically.
type Backend struct {
	floatx          tensor.DataType
	epsilon         float64
	imageDataFormat string

	mu      sync.Mutex
	opCount map[string]int
}

// Option configures a Backend.
type Option func(*Backend)

// WithFloatx sets the default floating point type.
func WithFloatx(dt tensor.DataType) Option {
	return func(b *Backend) {
		b.floatx = dt
	}
}

// WithEpsilon sets the fuzz factor.
func WithEpsilon(eps float64) Option {
	return func(b *Backend) {
		b.epsilon = eps
	}
}

// WithImageDataFormat sets the default layout of image tensors
// ("channels_last" or "channels_first").
func WithImageDataFormat(format string) Option {
	return func(b *Backend) {
		b.imageDataFormat = format
	}
}

// New creates a new symbolic backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		floatx:          tensor.Float32,
		epsilon:         DefaultEpsilon,
		imageDataFormat: "channels_last",
		opCount:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return Name
}

// Floatx returns the default floating point type.
func (b *Backend) Floatx() tensor.DataType {
	return b.floatx
}

// Epsilon returns the fuzz factor.
func (b *Backend) Epsilon() float64 {
	return b.epsilon
}

// ImageDataFormat returns the default layout of image tensors.
func (b *Backend) ImageDataFormat() string {
	return b.imageDataFormat
}

// Placeholder creates a graph-input tensor.
func (b *Backend) Placeholder(shape tensor.Shape, dtype tensor.DataType, name string) *tensor.Tensor {
	b.count("placeholder")
	return tensor.NewTensor(Name, "placeholder", name, shape, dtype)
}

// Variable creates a weight tensor. Variables must be fully defined.
func (b *Backend) Variable(shape tensor.Shape, dtype tensor.DataType, name string) *tensor.Tensor {
	if !shape.IsFullyDefined() {
		panic(fmt.Sprintf("symbolic: variable %q needs a fully defined shape, got %s", name, shape))
	}
	b.count("variable")
	t := tensor.NewTensor(Name, "variable", name, shape, dtype)
	t.MarkVariable()
	return t
}

// Constant creates a constant tensor. The value is not retained.
func (b *Backend) Constant(_ float64, shape tensor.Shape, dtype tensor.DataType) *tensor.Tensor {
	b.count("constant")
	return tensor.NewTensor(Name, "constant", "", shape, dtype)
}

// Apply records an operation producing a tensor of the given static shape.
func (b *Backend) Apply(op string, shape tensor.Shape, dtype tensor.DataType, operands ...*tensor.Tensor) *tensor.Tensor {
	b.count(op)
	return tensor.NewTensor(Name, op, "", shape, dtype, operands...)
}

// OpCount returns how many times op has been recorded.
func (b *Backend) OpCount(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opCount[op]
}

func (b *Backend) count(op string) {
	b.mu.Lock()
	b.opCount[op]++
	b.mu.Unlock()
}
