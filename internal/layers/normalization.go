package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// DefaultLayerNormEpsilon is the variance floor used when none is configured.
const DefaultLayerNormEpsilon = 1e-3

// LayerNormalization normalizes each sample over its last axis:
//
//	y = (x - mean) / sqrt(var + epsilon) * gamma + beta
//
// gamma (created when scale is on) and beta (when center is on) have the
// size of the last axis. Masks pass through.
type LayerNormalization struct {
	*engine.BaseLayer
	epsilon       float64
	center, scale bool

	gamma *engine.Weight
	beta  *engine.Weight
}

// NewLayerNormalization creates a LayerNormalization layer with both gamma
// and beta. A non-positive epsilon selects DefaultLayerNormEpsilon.
func NewLayerNormalization(backend tensor.Backend, epsilon float64, opts ...engine.Option) (*LayerNormalization, error) {
	if epsilon <= 0 {
		epsilon = DefaultLayerNormEpsilon
	}
	b, err := engine.NewBaseLayer("LayerNormalization", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	return &LayerNormalization{BaseLayer: b, epsilon: epsilon, center: true, scale: true}, nil
}

// WithoutCenter drops the beta offset.
func (l *LayerNormalization) WithoutCenter() *LayerNormalization {
	l.center = false
	return l
}

// WithoutScale drops the gamma factor.
func (l *LayerNormalization) WithoutScale() *LayerNormalization {
	l.scale = false
	return l
}

// ClassName implements engine.Layer.
func (l *LayerNormalization) ClassName() string { return "LayerNormalization" }

// Build creates gamma and beta.
func (l *LayerNormalization) Build(inputShapes []tensor.Shape) error {
	shape, err := single(l.Name(), inputShapes)
	if err != nil {
		return err
	}
	if shape.Rank() == 0 {
		return fmt.Errorf("%w: layer %q cannot normalize a scalar", engine.ErrConfiguration, l.Name())
	}
	dim := shape[shape.Rank()-1]
	if dim == tensor.Unknown {
		return fmt.Errorf("%w: layer %q: the last dimension of the inputs must be defined, got %s",
			engine.ErrConfiguration, l.Name(), shape)
	}
	if l.scale {
		l.gamma = l.AddWeight("gamma", tensor.NewShape(dim), true)
	}
	if l.center {
		l.beta = l.AddWeight("beta", tensor.NewShape(dim), true)
	}
	return nil
}

// Call implements engine.Layer.
func (l *LayerNormalization) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	operands := []*tensor.Tensor{inputs[0].Value()}
	for _, w := range []*engine.Weight{l.gamma, l.beta} {
		if w != nil {
			operands = append(operands, w.Tensor())
		}
	}
	return output(l, "layer_norm", inputs, operands...)
}

// GetConfig implements engine.Layer.
func (l *LayerNormalization) GetConfig() engine.Config {
	cfg := l.BaseLayer.GetConfig()
	cfg["epsilon"] = l.epsilon
	cfg["center"] = l.center
	cfg["scale"] = l.scale
	return cfg
}

var decodeLayerNormalization = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*LayerNormalization, error) {
	eps := r.float("epsilon", DefaultLayerNormEpsilon)
	center := r.bool("center", true)
	scale := r.bool("scale", true)
	if r.err != nil {
		return nil, r.err
	}
	l, err := NewLayerNormalization(backend, eps, opts...)
	if err != nil {
		return nil, err
	}
	l.center, l.scale = center, scale
	return l, nil
})
