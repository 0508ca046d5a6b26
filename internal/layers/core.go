package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Activation applies an elementwise activation function.
type Activation struct {
	*engine.BaseLayer
	activation string
}

// NewActivation creates an Activation layer for one of Activations().
func NewActivation(backend tensor.Backend, activation string, opts ...engine.Option) (*Activation, error) {
	if err := checkActivation(activation); err != nil {
		return nil, err
	}
	b, err := engine.NewBaseLayer("Activation", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	return &Activation{BaseLayer: b, activation: activation}, nil
}

// ClassName implements engine.Layer.
func (a *Activation) ClassName() string { return "Activation" }

// Call implements engine.Layer.
func (a *Activation) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	x := inputs[0].Value()
	if a.activation == Linear {
		return []*tensor.Tensor{a.Backend().Apply("identity", x.Shape(), x.DType(), x)}, nil
	}
	return []*tensor.Tensor{activate(a.Backend(), a.activation, x)}, nil
}

// GetConfig implements engine.Layer.
func (a *Activation) GetConfig() engine.Config {
	cfg := a.BaseLayer.GetConfig()
	cfg["activation"] = a.activation
	return cfg
}

// Dropout randomly zeroes a fraction of its inputs during training.
//
// The output depends on the learning phase unless the call passes an explicit
// training argument. A call with training=false is the identity.
type Dropout struct {
	*engine.BaseLayer
	rate float64
	seed *int
}

// NewDropout creates a Dropout layer. rate must be in [0, 1).
func NewDropout(backend tensor.Backend, rate float64, opts ...engine.Option) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("%w: dropout rate must be in [0, 1), got %v", engine.ErrConfiguration, rate)
	}
	b, err := engine.NewBaseLayer("Dropout", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	b.SetUsesLearningPhase(rate > 0)
	return &Dropout{BaseLayer: b, rate: rate}, nil
}

// WithSeed fixes the dropout seed recorded in the config.
func (d *Dropout) WithSeed(seed int) *Dropout {
	d.seed = &seed
	return d
}

// ClassName implements engine.Layer.
func (d *Dropout) ClassName() string { return "Dropout" }

// Rate returns the fraction of inputs dropped.
func (d *Dropout) Rate() float64 { return d.rate }

// Call implements engine.Layer.
func (d *Dropout) Call(inputs []*engine.KerasTensor, kwargs engine.Kwargs) ([]*tensor.Tensor, error) {
	x := inputs[0].Value()
	op := "dropout"
	if training, ok := kwargs[engine.TrainingKwarg].(bool); (ok && !training) || d.rate == 0 {
		op = "identity"
	}
	return []*tensor.Tensor{d.Backend().Apply(op, x.Shape(), x.DType(), x)}, nil
}

// GetConfig implements engine.Layer.
func (d *Dropout) GetConfig() engine.Config {
	cfg := d.BaseLayer.GetConfig()
	cfg["rate"] = d.rate
	if d.seed != nil {
		cfg["seed"] = *d.seed
	} else {
		cfg["seed"] = nil
	}
	return cfg
}

// ActivityRegularization adds an L1/L2 penalty on its inputs to the losses
// of the layer, keyed by the call inputs. Values pass through unchanged.
type ActivityRegularization struct {
	*engine.BaseLayer
	l1, l2 float64
}

// NewActivityRegularization creates an ActivityRegularization layer.
func NewActivityRegularization(backend tensor.Backend, l1, l2 float64, opts ...engine.Option) (*ActivityRegularization, error) {
	if l1 < 0 || l2 < 0 {
		return nil, fmt.Errorf("%w: regularization factors must be non-negative, got l1=%v l2=%v",
			engine.ErrConfiguration, l1, l2)
	}
	b, err := engine.NewBaseLayer("ActivityRegularization", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	return &ActivityRegularization{BaseLayer: b, l1: l1, l2: l2}, nil
}

// ClassName implements engine.Layer.
func (a *ActivityRegularization) ClassName() string { return "ActivityRegularization" }

// Call implements engine.Layer.
func (a *ActivityRegularization) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	x := inputs[0].Value()
	backend := a.Backend()
	if a.l1 > 0 {
		a.RegisterCallLoss(backend.Apply("l1_penalty", tensor.Shape{}, x.DType(), x))
	}
	if a.l2 > 0 {
		a.RegisterCallLoss(backend.Apply("l2_penalty", tensor.Shape{}, x.DType(), x))
	}
	return []*tensor.Tensor{backend.Apply("identity", x.Shape(), x.DType(), x)}, nil
}

// GetConfig implements engine.Layer.
func (a *ActivityRegularization) GetConfig() engine.Config {
	cfg := a.BaseLayer.GetConfig()
	cfg["l1"] = a.l1
	cfg["l2"] = a.l2
	return cfg
}

// Masking masks timesteps whose features all equal a mask value.
//
// For inputs of shape (batch, timesteps, features) the output mask has shape
// (batch, timesteps).
type Masking struct {
	*engine.BaseLayer
	maskValue float64
}

// NewMasking creates a Masking layer.
func NewMasking(backend tensor.Backend, maskValue float64, opts ...engine.Option) (*Masking, error) {
	b, err := engine.NewBaseLayer("Masking", backend, opts...)
	if err != nil {
		return nil, err
	}
	b.SetSupportsMasking(true)
	return &Masking{BaseLayer: b, maskValue: maskValue}, nil
}

// ClassName implements engine.Layer.
func (m *Masking) ClassName() string { return "Masking" }

// ComputeMask flags the timesteps with at least one non-masked feature.
func (m *Masking) ComputeMask(inputs []*engine.KerasTensor, _ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	x := inputs[0]
	shape := x.Shape()
	if shape.Rank() < 2 {
		return nil, fmt.Errorf("%w: layer %q needs inputs of rank >= 2, got %s", engine.ErrConfiguration, m.Name(), shape)
	}
	return []*tensor.Tensor{m.Backend().Apply("any_not_equal", shape[:shape.Rank()-1], tensor.Bool, x.Value())}, nil
}

// Call implements engine.Layer.
func (m *Masking) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	x := inputs[0].Value()
	return []*tensor.Tensor{m.Backend().Apply("masking", x.Shape(), x.DType(), x)}, nil
}

// GetConfig implements engine.Layer.
func (m *Masking) GetConfig() engine.Config {
	cfg := m.BaseLayer.GetConfig()
	cfg["mask_value"] = m.maskValue
	return cfg
}

var (
	decodeActivation = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Activation, error) {
		name := r.string("activation", Linear)
		if r.err != nil {
			return nil, r.err
		}
		return NewActivation(backend, name, opts...)
	})

	decodeDropout = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Dropout, error) {
		rate := r.float("rate", 0)
		hasSeed := r.cfg.Has("seed")
		seed := r.int("seed", 0)
		if r.err != nil {
			return nil, r.err
		}
		d, err := NewDropout(backend, rate, opts...)
		if err != nil {
			return nil, err
		}
		if hasSeed {
			d.WithSeed(seed)
		}
		return d, nil
	})

	decodeActivityRegularization = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*ActivityRegularization, error) {
		l1, l2 := r.float("l1", 0), r.float("l2", 0)
		if r.err != nil {
			return nil, r.err
		}
		return NewActivityRegularization(backend, l1, l2, opts...)
	})

	decodeMasking = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Masking, error) {
		v := r.float("mask_value", 0)
		if r.err != nil {
			return nil, r.err
		}
		return NewMasking(backend, v, opts...)
	})
)
