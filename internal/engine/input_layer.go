package engine

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

const inputLayerClass = "InputLayer"

// WithInputTensor makes an InputLayer wrap an existing tensor instead of
// creating a placeholder. The tensor must not have been produced by a layer.
func WithInputTensor(t *KerasTensor) Option {
	return func(s *settings) {
		s.inputTensor = t
	}
}

// WithSparse records that the input placeholder is sparse.
func WithSparse(sparse bool) Option {
	return func(s *settings) {
		s.sparse = sparse
	}
}

// InputLayer is the entry point of a model graph. It owns exactly one node,
// node 0, which has no inbound layers and whose input and output is the
// placeholder tensor.
type InputLayer struct {
	*BaseLayer

	sparse bool
}

// NewInputLayer creates an input layer and its placeholder.
//
// Exactly one of WithInputShape or WithBatchInputShape must be given, unless
// WithInputTensor supplies a tensor with a known shape. The dtype defaults to
// the backend floatx.
func NewInputLayer(backend tensor.Backend, opts ...Option) (*InputLayer, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if s.name == "" {
		s.name = fmt.Sprintf("input_%d", GetUID("input"))
	}

	if s.inputTensor != nil {
		if !s.inputTensor.History().IsOrigin() {
			return nil, newError(ErrConfiguration, s.name,
				"input tensor was already produced by layer %s; only raw tensors can be wrapped",
				s.inputTensor.History())
		}
		if s.inputShape == nil && s.batchInputShape == nil {
			s.batchInputShape = s.inputTensor.Shape()
		}
		if s.dtype == nil {
			dt := s.inputTensor.DType()
			s.dtype = &dt
		}
	}
	if s.inputShape == nil && s.batchInputShape == nil {
		return nil, newError(ErrConfiguration, s.name,
			"an InputLayer should be passed either a batch_input_shape or an input_shape")
	}

	l := &InputLayer{
		BaseLayer: newBase(inputLayerClass, backend, s),
		sparse:    s.sparse,
	}
	l.trainable = false
	l.built = true

	var value *tensor.Tensor
	if s.inputTensor != nil {
		value = s.inputTensor.Value()
	} else {
		if backend == nil {
			return nil, newError(ErrConfiguration, l.name, "a backend is required to create the input placeholder")
		}
		value = backend.Placeholder(l.batchInputShape, l.dtype, l.name)
	}

	out := producedTensor(value, Provenance{layer: l}, l.batchInputShape, nil, false)
	newNode(l, []*KerasTensor{out}, []*KerasTensor{out}, nil, true)
	return l, nil
}

// Input creates an InputLayer and returns its tensor.
func Input(backend tensor.Backend, opts ...Option) (*KerasTensor, error) {
	l, err := NewInputLayer(backend, opts...)
	if err != nil {
		return nil, err
	}
	return l.inboundNodes[0].outputTensors[0], nil
}

// ClassName implements Layer.
func (l *InputLayer) ClassName() string {
	return inputLayerClass
}

// Sparse reports whether the placeholder is sparse.
func (l *InputLayer) Sparse() bool {
	return l.sparse
}

// Call implements Layer. Input layers are not callable.
func (l *InputLayer) Call(_ []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	return nil, newError(ErrConfiguration, l.name, "an InputLayer cannot be called on tensors")
}

// GetConfig implements Layer.
func (l *InputLayer) GetConfig() Config {
	return Config{
		"batch_input_shape": l.batchInputShape.Clone(),
		"dtype":             l.dtype.String(),
		"sparse":            l.sparse,
		"name":              l.name,
	}
}

func inputLayerFromConfig(cfg Config, ctx *DeserializeContext) (Layer, error) {
	opts, err := BaseOptions(cfg)
	if err != nil {
		return nil, err
	}
	sparse, err := cfg.GetBool("sparse", false)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithSparse(sparse))
	return NewInputLayer(ctx.Backend, opts...)
}
