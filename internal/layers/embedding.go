package layers

import (
	"fmt"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/tensor"
)

// EmbeddingConfig holds the arguments of an Embedding layer.
type EmbeddingConfig struct {
	// InputDim is the vocabulary size.
	InputDim int
	// OutputDim is the size of each embedding vector.
	OutputDim int
	// MaskZero treats index 0 as padding and emits a mask.
	MaskZero bool
	// InputLength fixes the sequence length, 0 if variable.
	InputLength int
}

// Embedding maps integer indices to dense vectors.
//
// The weight matrix has shape [input_dim, output_dim]. An input of shape
// (batch, length) produces (batch, length, output_dim). With MaskZero the
// output mask flags the non-zero indices, so InputDim must leave room for the
// padding index.
//
// Example:
//
//	emb, err := layers.NewEmbedding(backend, layers.EmbeddingConfig{
//	    InputDim:  10000,
//	    OutputDim: 128,
//	    MaskZero:  true,
//	})
type Embedding struct {
	*engine.BaseLayer
	cfg        EmbeddingConfig
	embeddings *engine.Weight
}

// NewEmbedding creates an Embedding layer. With a positive InputLength and
// no explicit input shape, the layer declares (batch, input_length) inputs.
func NewEmbedding(backend tensor.Backend, cfg EmbeddingConfig, opts ...engine.Option) (*Embedding, error) {
	if cfg.InputDim <= 0 || cfg.OutputDim <= 0 {
		return nil, fmt.Errorf("%w: embedding dims must be positive, got input_dim=%d output_dim=%d",
			engine.ErrConfiguration, cfg.InputDim, cfg.OutputDim)
	}
	if cfg.InputLength > 0 {
		opts = append([]engine.Option{engine.WithInputShape(cfg.InputLength)}, opts...)
	}
	b, err := engine.NewBaseLayer("Embedding", backend, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedding{BaseLayer: b, cfg: cfg}, nil
}

// ClassName implements engine.Layer.
func (e *Embedding) ClassName() string { return "Embedding" }

// Embeddings returns the lookup table (nil before build).
func (e *Embedding) Embeddings() *engine.Weight { return e.embeddings }

// Build creates the lookup table.
func (e *Embedding) Build(_ []tensor.Shape) error {
	e.embeddings = e.AddWeight("embeddings", tensor.NewShape(e.cfg.InputDim, e.cfg.OutputDim), true)
	return nil
}

// ComputeOutputShape appends output_dim.
func (e *Embedding) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	shape, err := single(e.Name(), inputShapes)
	if err != nil {
		return nil, err
	}
	if e.cfg.InputLength > 0 && shape.Rank() >= 2 {
		if got := shape[1]; got != tensor.Unknown && got != e.cfg.InputLength {
			return nil, fmt.Errorf("%w: layer %q: input_length is %d, but received input has shape %s",
				engine.ErrConfiguration, e.Name(), e.cfg.InputLength, shape)
		}
	}
	out := append(shape.Clone(), e.cfg.OutputDim)
	return []tensor.Shape{out}, nil
}

// ComputeMask returns not_equal(inputs, 0) when MaskZero is set.
func (e *Embedding) ComputeMask(inputs []*engine.KerasTensor, _ []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if !e.cfg.MaskZero {
		return nil, nil
	}
	x := inputs[0]
	return []*tensor.Tensor{e.Backend().Apply("not_equal", x.Shape(), tensor.Bool, x.Value())}, nil
}

// Call implements engine.Layer.
func (e *Embedding) Call(inputs []*engine.KerasTensor, _ engine.Kwargs) ([]*tensor.Tensor, error) {
	return output(e, "gather", inputs, e.embeddings.Tensor(), inputs[0].Value())
}

// GetConfig implements engine.Layer.
func (e *Embedding) GetConfig() engine.Config {
	cfg := e.BaseLayer.GetConfig()
	cfg["input_dim"] = e.cfg.InputDim
	cfg["output_dim"] = e.cfg.OutputDim
	cfg["mask_zero"] = e.cfg.MaskZero
	if e.cfg.InputLength > 0 {
		cfg["input_length"] = e.cfg.InputLength
	} else {
		cfg["input_length"] = nil
	}
	return cfg
}

var decodeEmbedding = decoder(func(r *reader, backend tensor.Backend, opts []engine.Option) (*Embedding, error) {
	cfg := EmbeddingConfig{
		InputDim:    r.int("input_dim", 0),
		OutputDim:   r.int("output_dim", 0),
		MaskZero:    r.bool("mask_zero", false),
		InputLength: r.int("input_length", 0),
	}
	if r.err != nil {
		return nil, r.err
	}
	// batch_input_shape from the config already carries the input length.
	if r.cfg.Has("batch_input_shape") {
		length := cfg.InputLength
		cfg.InputLength = 0
		e, err := NewEmbedding(backend, cfg, opts...)
		if err != nil {
			return nil, err
		}
		e.cfg.InputLength = length
		return e, nil
	}
	return NewEmbedding(backend, cfg, opts...)
})
