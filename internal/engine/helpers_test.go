package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tusespifump1o/keras/internal/backend/symbolic"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// toyDense maps the last axis to units.
type toyDense struct {
	*BaseLayer
	units int
}

func newToyDense(t *testing.T, backend tensor.Backend, units int, opts ...Option) *toyDense {
	t.Helper()
	b, err := NewBaseLayer("ToyDense", backend, opts...)
	require.NoError(t, err)
	return &toyDense{BaseLayer: b, units: units}
}

func (l *toyDense) ClassName() string { return "ToyDense" }

func (l *toyDense) Build(inputShapes []tensor.Shape) error {
	in := inputShapes[0][inputShapes[0].Rank()-1]
	l.AddWeight("kernel", tensor.NewShape(in, l.units), true)
	l.AddWeight("bias", tensor.NewShape(l.units), true)
	return nil
}

func (l *toyDense) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	out := inputShapes[0].Clone()
	out[len(out)-1] = l.units
	return []tensor.Shape{out}, nil
}

func (l *toyDense) Call(inputs []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	shapes, _ := l.ComputeOutputShape(tensorShapes(inputs))
	return []*tensor.Tensor{l.backend.Apply("dense", shapes[0], l.dtype, inputs[0].Value())}, nil
}

func (l *toyDense) GetConfig() Config {
	cfg := l.BaseLayer.GetConfig()
	cfg["units"] = l.units
	return cfg
}

// toyMask emits a mask computed from its input and passes values through.
type toyMask struct {
	*BaseLayer
}

func newToyMask(t *testing.T, backend tensor.Backend, opts ...Option) *toyMask {
	t.Helper()
	b, err := NewBaseLayer("ToyMask", backend, opts...)
	require.NoError(t, err)
	b.SetSupportsMasking(true)
	return &toyMask{BaseLayer: b}
}

func (l *toyMask) ClassName() string { return "ToyMask" }

func (l *toyMask) Call(inputs []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{inputs[0].Value()}, nil
}

func (l *toyMask) ComputeMask(inputs []*KerasTensor, _ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := inputs[0]
	shape := x.Shape()
	return []*tensor.Tensor{l.backend.Apply("not_equal", shape[:len(shape)-1], tensor.Bool, x.Value())}, nil
}

// toyMaskedRelu supports masking and refines the incoming mask.
type toyMaskedRelu struct {
	*BaseLayer
}

func newToyMaskedRelu(t *testing.T, backend tensor.Backend, opts ...Option) *toyMaskedRelu {
	t.Helper()
	b, err := NewBaseLayer("ToyMaskedRelu", backend, opts...)
	require.NoError(t, err)
	b.SetSupportsMasking(true)
	return &toyMaskedRelu{BaseLayer: b}
}

func (l *toyMaskedRelu) ClassName() string { return "ToyMaskedRelu" }

func (l *toyMaskedRelu) Call(inputs []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{l.backend.Apply("relu", inputs[0].Shape(), l.dtype, inputs[0].Value())}, nil
}

func (l *toyMaskedRelu) ComputeMask(_ []*KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if masks[0] == nil {
		return nil, nil
	}
	return []*tensor.Tensor{l.backend.Apply("logical_and", masks[0].Shape(), tensor.Bool, masks[0])}, nil
}

// toyAdd sums any number of inputs of the same shape.
type toyAdd struct {
	*BaseLayer
}

func newToyAdd(t *testing.T, backend tensor.Backend, opts ...Option) *toyAdd {
	t.Helper()
	b, err := NewBaseLayer("ToyAdd", backend, opts...)
	require.NoError(t, err)
	return &toyAdd{BaseLayer: b}
}

func (l *toyAdd) ClassName() string { return "ToyAdd" }

func (l *toyAdd) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	return []tensor.Shape{inputShapes[0].Clone()}, nil
}

func (l *toyAdd) Call(inputs []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{l.backend.Apply("add", inputs[0].Shape(), l.dtype, tensorValues(inputs)...)}, nil
}

// toySplit returns its input twice.
type toySplit struct {
	*BaseLayer
}

func newToySplit(t *testing.T, backend tensor.Backend, opts ...Option) *toySplit {
	t.Helper()
	b, err := NewBaseLayer("ToySplit", backend, opts...)
	require.NoError(t, err)
	return &toySplit{BaseLayer: b}
}

func (l *toySplit) ClassName() string { return "ToySplit" }

func (l *toySplit) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	return []tensor.Shape{inputShapes[0].Clone(), inputShapes[0].Clone()}, nil
}

func (l *toySplit) Call(inputs []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	v := inputs[0].Value()
	return []*tensor.Tensor{
		l.backend.Apply("identity", v.Shape(), l.dtype, v),
		l.backend.Apply("identity", v.Shape(), l.dtype, v),
	}, nil
}

// toyDropout depends on the learning phase and registers a loss per call.
type toyDropout struct {
	*BaseLayer
}

func newToyDropout(t *testing.T, backend tensor.Backend, opts ...Option) *toyDropout {
	t.Helper()
	b, err := NewBaseLayer("ToyDropout", backend, opts...)
	require.NoError(t, err)
	b.SetUsesLearningPhase(true)
	b.SetSupportsMasking(true)
	return &toyDropout{BaseLayer: b}
}

func (l *toyDropout) ClassName() string { return "ToyDropout" }

func (l *toyDropout) Call(inputs []*KerasTensor, _ Kwargs) ([]*tensor.Tensor, error) {
	v := inputs[0].Value()
	l.RegisterCallLoss(l.backend.Apply("activity_loss", tensor.Shape{}, l.dtype, v))
	return []*tensor.Tensor{l.backend.Apply("dropout", v.Shape(), l.dtype, v)}, nil
}

func toyFromConfig(build func(*BaseLayer, Config) (Layer, error)) FromConfigFunc {
	return func(cfg Config, ctx *DeserializeContext) (Layer, error) {
		opts, err := BaseOptions(cfg)
		if err != nil {
			return nil, err
		}
		b, err := NewBaseLayer("", ctx.Backend, opts...)
		if err != nil {
			return nil, err
		}
		return build(b, cfg)
	}
}

func init() {
	Register("ToyDense", toyFromConfig(func(b *BaseLayer, cfg Config) (Layer, error) {
		units, err := cfg.GetInt("units", 0)
		if err != nil {
			return nil, err
		}
		b.className = "ToyDense"
		return &toyDense{BaseLayer: b, units: units}, nil
	}))
	Register("ToyAdd", toyFromConfig(func(b *BaseLayer, _ Config) (Layer, error) {
		b.className = "ToyAdd"
		return &toyAdd{BaseLayer: b}, nil
	}))
	Register("ToySplit", toyFromConfig(func(b *BaseLayer, _ Config) (Layer, error) {
		b.className = "ToySplit"
		return &toySplit{BaseLayer: b}, nil
	}))
	Register("ToyMask", toyFromConfig(func(b *BaseLayer, _ Config) (Layer, error) {
		b.className = "ToyMask"
		b.supportsMasking = true
		return &toyMask{BaseLayer: b}, nil
	}))
	Register("ToyMaskedRelu", toyFromConfig(func(b *BaseLayer, _ Config) (Layer, error) {
		b.className = "ToyMaskedRelu"
		b.supportsMasking = true
		return &toyMaskedRelu{BaseLayer: b}, nil
	}))
	Register("ToyDropout", toyFromConfig(func(b *BaseLayer, _ Config) (Layer, error) {
		b.className = "ToyDropout"
		b.supportsMasking = true
		b.usesLearningPhase = true
		return &toyDropout{BaseLayer: b}, nil
	}))
}

func newBackend() *symbolic.Backend {
	return symbolic.New()
}

func mustInput(t *testing.T, backend tensor.Backend, opts ...Option) *KerasTensor {
	t.Helper()
	x, err := Input(backend, opts...)
	require.NoError(t, err)
	return x
}

func mustApply(t *testing.T, layer Layer, inputs ...*KerasTensor) *KerasTensor {
	t.Helper()
	out, err := Apply(layer, inputs, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

func layerNamesOf(layers []Layer) []string {
	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Base().Name()
	}
	return names
}
