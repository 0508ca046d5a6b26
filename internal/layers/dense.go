package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// DenseConfig holds the arguments of a Dense layer.
type DenseConfig struct {
	Units      int
	Activation string
	NoBias     bool
}

// Dense implements a fully connected layer: activation(x @ kernel + bias).
//
// The kernel has shape [in_features, units] where in_features is the size of
// the last input axis, known at build time. Inputs of rank above 2 are
// contracted over their last axis only.
//
// Example:
//
//	dense, err := layers.NewDense(backend, layers.DenseConfig{Units: 64, Activation: "relu"},
//	    engine.WithInputShape(784))
type Dense struct {
	*engine.BaseLayer
	cfg DenseConfig

	kernel *engine.Weight
	bias   *engine.Weight
}

// NewDense creates a Dense layer.
func NewDense(backend tensor.Backend, cfg DenseConfig, opts ...engine.Option) (*Dense, error) {
	if cfg.Units <= 0 {
		return nil, fmt.Errorf("%w: dense units must be positive, got %d", engine.ErrConfiguration, cfg.Units)
	}
	if err := checkActivation(orLinear(cfg.Activation)); err != nil {
		return nil, err
	}
	b, err := engine.NewBaseLayer("Dense", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	b.SetInputSpec(engine.InputSpec{MinNDim: 2})
	return &Dense{BaseLayer: b, cfg: cfg}, nil
}

// ClassName implements engine.Layer.
func (d *Dense) ClassName() string { return "Dense" }

// Kernel returns the kernel weight (nil before build).
func (d *Dense) Kernel() *engine.Weight { return d.kernel }

// Bias returns the bias weight (nil before build or without bias).
func (d *Dense) Bias() *engine.Weight { return d.bias }

// Build creates the kernel and bias.
func (d *Dense) Build(inputShapes []tensor.Shape) error {
	shape, err := single(d.Name(), inputShapes)
	if err != nil {
		return err
	}
	in := shape[shape.Rank()-1]
	if in == tensor.Unknown {
		return fmt.Errorf("%w: layer %q: the last dimension of the inputs must be defined, got %s",
			engine.ErrConfiguration, d.Name(), shape)
	}
	d.kernel = d.AddWeight("kernel", tensor.NewShape(in, d.cfg.Units), true)
	if !d.cfg.NoBias {
		d.bias = d.AddWeight("bias", tensor.NewShape(d.cfg.Units), true)
	}
	d.SetInputSpec(engine.InputSpec{MinNDim: 2, Axes: map[int]int{-1: in}})
	return nil
}

// ComputeOutputShape replaces the last axis with units.
func (d *Dense) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(d.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	if shape.Rank() < 2 {
		return nil, fmt.Errorf("%w: layer %q expects rank >= 2, got %s", engine.ErrConfiguration, d.Name(), shape)
	}
	out := shape.Clone()
	out[out.Rank()-1] = d.cfg.Units
	return []tensor.Shape{out}, nil
}

// Call implements engine.Layer.
func (d *Dense) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	out, err := output(d, "matmul", inputs, inputs[0].Value(), d.kernel.Tensor())
	if err != nil {
		return nil, err
	}
	y := out[0]
	if d.bias != nil {
		y = d.Backend().Apply("bias_add", y.Shape(), y.DType(), y, d.bias.Tensor())
	}
	return []*tensor.Tensor{activate(d.Backend(), d.cfg.Activation, y)}, nil
}

// GetConfig implements engine.Layer.
func (d *Dense) GetConfig() engine.Config {
	cfg := d.BaseLayer.GetConfig()
	cfg["units"] = d.cfg.Units
	cfg["activation"] = orLinear(d.cfg.Activation)
	cfg["use_bias"] = !d.cfg.NoBias
	return cfg
}

func orLinear(name string) string {
	if name == "" {
		return Linear
	}
	return name
}

var decodeDense = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Dense, error) {
	cfg := DenseConfig{
		Units:      r.int("units", 0),
		Activation: r.string("activation", Linear),
		NoBias:     !r.bool("use_bias", true),
	}
	if r.err != nil {
		return nil, r.err
	}
	return NewDense(backend, cfg, opts...)
})
