package engine

import (
	"encoding/json"
	"fmt"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

const sequentialClass = "Sequential"

// Sequential is a linear stack of single-input, single-output layers.
//
// It maintains a functional Model over the stack, rebuilt on every Add and
// Pop. The first layer must declare its input shape (WithInputShape or
// WithBatchInputShape), be an InputLayer, or already have been called.
//
// Example:
//
//	hidden, _ := layers.NewDense(backend, layers.DenseConfig{Units: 32, Activation: "relu"}, engine.WithInputShape(784))
//	out, _ := layers.NewDense(backend, layers.DenseConfig{Units: 10})
//	seq, _ := engine.NewSequential([]engine.Layer{hidden, out})
type Sequential struct {
	*BaseLayer

	layers  []Layer
	outputs []*KerasTensor
	model   *Model
}

// NewSequential creates a Sequential model and adds layers in order.
func NewSequential(layers []Layer, opts ...Option) (*Sequential, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	s.inputShape, s.batchInputShape, s.batchSize = nil, nil, 0

	seq := &Sequential{BaseLayer: newBase(sequentialClass, nil, s)}
	seq.supportsMasking = true
	for _, l := range layers {
		if err := seq.Add(l); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

// ClassName implements Layer.
func (s *Sequential) ClassName() string {
	return sequentialClass
}

// Add appends a layer to the stack and calls it on the current output.
func (s *Sequential) Add(layer Layer) error {
	if len(s.inboundNodes) > 0 {
		return newError(ErrConfiguration, s.name, "cannot add layers to a Sequential model that has already been called")
	}
	b := layer.Base()
	for _, l := range s.layers {
		if l.Base().name == b.name {
			return newError(ErrConfiguration, s.name,
				"the name %q is used 2 times in the model; all layer names should be unique", b.name)
		}
	}

	var (
		out     *KerasTensor
		created bool
	)
	if len(s.layers) == 0 {
		if len(b.inboundNodes) == 0 {
			if b.batchInputShape == nil {
				return newError(ErrConfiguration, s.name,
					"the first layer in a Sequential model must get an input shape")
			}
			x, err := Input(b.backend,
				WithBatchInputShape(b.batchInputShape),
				WithDType(b.dtype),
				WithName(b.name+"_input"))
			if err != nil {
				return err
			}
			if out, err = ApplyOne(layer, x); err != nil {
				return err
			}
			created = true
		} else {
			outs := b.inboundNodes[0].outputTensors
			if len(outs) != 1 {
				return newError(ErrConfiguration, s.name,
					"all layers in a Sequential model should have a single output tensor; %s has %d", b.name, len(outs))
			}
			out = outs[0]
		}
		s.backend = b.backend
		s.dtype = b.dtype
	} else {
		var err error
		if out, err = ApplyOne(layer, s.outputs[len(s.outputs)-1]); err != nil {
			return err
		}
		created = true
	}

	if err := s.rebuild(append(s.outputs, out)); err != nil {
		if created {
			b.inboundNodes[out.history.nodeIndex].detach()
		}
		return err
	}
	s.layers = append(s.layers, layer)
	s.outputs = append(s.outputs, out)
	return nil
}

// Pop removes the last layer.
func (s *Sequential) Pop() error {
	if len(s.layers) == 0 {
		return newError(ErrConfiguration, s.name, "there are no layers in the model")
	}
	if len(s.inboundNodes) > 0 {
		return newError(ErrConfiguration, s.name, "cannot pop layers from a Sequential model that has already been called")
	}
	s.layers = s.layers[:len(s.layers)-1]
	s.outputs = s.outputs[:len(s.outputs)-1]
	if len(s.layers) == 0 {
		s.model = nil
		s.built = false
		return nil
	}
	return s.rebuild(s.outputs)
}

func (s *Sequential) rebuild(outputs []*KerasTensor) error {
	last := outputs[len(outputs)-1]
	inputs := SourceInputs(last)
	m, err := NewModel(inputs, []*KerasTensor{last}, WithName(s.name+"_model"), WithTrainable(s.trainable))
	if err != nil {
		return err
	}
	s.model = m
	s.built = true
	s.usesLearningPhase = m.usesLearningPhase
	specs := make([]InputSpec, len(inputs))
	for i, t := range inputs {
		specs[i] = InputSpec{Shape: t.Shape()}
	}
	s.inputSpec = specs
	return nil
}

// Len returns the number of layers.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Layers returns the stacked layers, without the implicit InputLayer.
func (s *Sequential) Layers() []Layer {
	return append([]Layer(nil), s.layers...)
}

// LayerAt returns the layer at position i.
func (s *Sequential) LayerAt(i int) (Layer, error) {
	if i < 0 || i >= len(s.layers) {
		return nil, newError(ErrIndexOutOfRange, s.name,
			"was asked to retrieve layer at index %d but model only has %d layers", i, len(s.layers))
	}
	return s.layers[i], nil
}

// Layer returns the layer with the given name.
func (s *Sequential) Layer(name string) (Layer, error) {
	for _, l := range s.layers {
		if l.Base().name == name {
			return l, nil
		}
	}
	return nil, newError(ErrConfiguration, s.name, "no such layer: %s", name)
}

// Model returns the functional model over the stack, or nil when empty.
func (s *Sequential) Model() *Model {
	return s.model
}

func (s *Sequential) nestedLayers() []Layer {
	return s.layers
}

func (s *Sequential) requireModel() error {
	if s.model == nil {
		return newError(ErrConfiguration, s.name, "the Sequential model has no layers")
	}
	return nil
}

// Build implements Layer.
func (s *Sequential) Build(_ []tensor.Shape) error {
	return s.requireModel()
}

// Call implements Layer.
func (s *Sequential) Call(inputs []*KerasTensor, kwargs Kwargs) ([]*tensor.Tensor, error) {
	values, _, err := s.callWithMasks(inputs, kwargs)
	return values, err
}

func (s *Sequential) callWithMasks(inputs []*KerasTensor, kwargs Kwargs) ([]*tensor.Tensor, []*tensor.Tensor, error) {
	if err := s.requireModel(); err != nil {
		return nil, nil, err
	}
	outputs, err := s.model.replay(inputs, kwargs, s.BaseLayer)
	if err != nil {
		return nil, nil, err
	}
	return tensorValues(outputs), tensorMasks(outputs), nil
}

// ComputeOutputShape implements Layer.
func (s *Sequential) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	if err := s.requireModel(); err != nil {
		return nil, err
	}
	return s.model.ComputeOutputShape(inputShapes)
}

// ComputeMask implements Layer.
func (s *Sequential) ComputeMask(inputs []*KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := s.requireModel(); err != nil {
		return nil, err
	}
	return s.model.ComputeMask(inputs, masks)
}

// TrainableWeights implements Layer.
func (s *Sequential) TrainableWeights() []*Weight {
	tw, _ := networkWeights(s.trainable, s.layers)
	return tw
}

// NonTrainableWeights implements Layer.
func (s *Sequential) NonTrainableWeights() []*Weight {
	_, ntw := networkWeights(s.trainable, s.layers)
	return ntw
}

// Losses returns the losses of the stack, collected like Model.Losses.
func (s *Sequential) Losses() []*tensor.Tensor {
	var g *Graph
	if s.model != nil {
		g = s.model.graph
	}
	return collectRecords(s.BaseLayer, g, (*BaseLayer).Losses, (*BaseLayer).GetLossesFor)
}

// Updates returns the updates of the stack.
func (s *Sequential) Updates() []*tensor.Tensor {
	var g *Graph
	if s.model != nil {
		g = s.model.graph
	}
	return collectRecords(s.BaseLayer, g, (*BaseLayer).Updates, (*BaseLayer).GetUpdatesFor)
}

// GetConfig implements Layer.
func (s *Sequential) GetConfig() Config {
	layers := make([]Envelope, len(s.layers))
	for i, l := range s.layers {
		layers[i] = Serialize(l)
	}
	return Config{
		"name":   s.name,
		"layers": layers,
	}
}

// ToJSON returns the model as indented JSON.
func (s *Sequential) ToJSON() ([]byte, error) {
	return MarshalJSON(s)
}

// ToYAML returns the model as YAML.
func (s *Sequential) ToYAML() ([]byte, error) {
	return MarshalYAML(s)
}

type sequentialConfig struct {
	Name   string     `json:"name"`
	Layers []Envelope `json:"layers"`
}

// SequentialFromConfig reconstructs a Sequential model from GetConfig output.
func SequentialFromConfig(cfg Config, ctx *DeserializeContext) (*Sequential, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode sequential config: %w", ErrSerialization, err)
	}
	var sc sequentialConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: decode sequential config: %w", ErrSerialization, err)
	}

	var opts []Option
	if sc.Name != "" {
		opts = append(opts, WithName(sc.Name))
	}
	seq, err := NewSequential(nil, opts...)
	if err != nil {
		return nil, err
	}
	for i, env := range sc.Layers {
		l, err := Deserialize(env, ctx)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := seq.Add(l); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return seq, nil
}
