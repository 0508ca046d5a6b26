package engine

import (
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

const modelClass = "Model"

// Model is a layer that owns the resolved graph between its input and output
// tensors.
//
// A model holds references to the nodes of its layers that existed when it
// was constructed; calling its layers elsewhere later does not change the
// model. Calling the model itself (with Apply) replays the graph on the new
// inputs, which adds one node to every inner layer.
//
// Like a Keras functional model, a Model owns node 0 from construction: its
// inputs are the model inputs and its outputs the model outputs. Calls start
// at node 1.
type Model struct {
	*BaseLayer

	graph       *Graph
	shapeCache  map[string][]tensor.Shape
	layerByName map[string]Layer
}

// NewModel resolves the graph from inputs to outputs and wraps it as a layer.
//
// See ResolveGraph for the connectivity rules. Layer names must be unique
// within the model. Only WithName and WithTrainable are meaningful options.
func NewModel(inputs, outputs []*KerasTensor, opts ...Option) (*Model, error) {
	return newModel(modelClass, inputs, outputs, opts)
}

func newModel(className string, inputs, outputs []*KerasTensor, opts []Option) (*Model, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, newError(ErrConnectivity, s.name, "a model needs at least one input tensor")
	}

	g, err := ResolveGraph(inputs, outputs)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Layer, len(g.Layers))
	for _, l := range g.Layers {
		name := l.Base().name
		if _, dup := byName[name]; dup {
			return nil, newError(ErrConfiguration, s.name,
				"the name %q is used %d times in the model; all layer names should be unique", name, countNames(g.Layers, name))
		}
		byName[name] = l
	}

	first := inputs[0].History().layer.Base()
	if s.dtype == nil {
		dt := first.dtype
		s.dtype = &dt
	}
	s.inputShape, s.batchInputShape, s.batchSize = nil, nil, 0

	m := &Model{
		BaseLayer:   newBase(className, first.backend, s),
		graph:       g,
		shapeCache:  make(map[string][]tensor.Shape),
		layerByName: byName,
	}
	m.built = true
	m.supportsMasking = true
	m.reservedNodes = 1
	for _, t := range outputs {
		m.usesLearningPhase = m.usesLearningPhase || t.usesLearningPhase
	}
	specs := make([]InputSpec, len(inputs))
	for i, t := range inputs {
		specs[i] = InputSpec{Shape: t.Shape()}
	}
	m.inputSpec = specs

	newNode(m, g.Inputs, g.Outputs, nil, true)

	klog.V(2).InfoS("Built model", "name", m.name, "layers", len(g.Layers), "nodes", len(g.Nodes))
	return m, nil
}

func countNames(layers []Layer, name string) int {
	n := 0
	for _, l := range layers {
		if l.Base().name == name {
			n++
		}
	}
	return n
}

// ClassName implements Layer.
func (m *Model) ClassName() string {
	return m.className
}

// Graph returns the resolved graph.
func (m *Model) Graph() *Graph {
	return m.graph
}

// Inputs returns the declared input tensors.
func (m *Model) Inputs() []*KerasTensor {
	return append([]*KerasTensor(nil), m.graph.Inputs...)
}

// Outputs returns the declared output tensors.
func (m *Model) Outputs() []*KerasTensor {
	return append([]*KerasTensor(nil), m.graph.Outputs...)
}

// Layers returns the layers of the model in topological order.
func (m *Model) Layers() []Layer {
	return append([]Layer(nil), m.graph.Layers...)
}

// InputLayers returns the producers of the declared inputs.
func (m *Model) InputLayers() []TensorRef {
	return append([]TensorRef(nil), m.graph.InputLayers...)
}

// OutputLayers returns the producers of the declared outputs.
func (m *Model) OutputLayers() []TensorRef {
	return append([]TensorRef(nil), m.graph.OutputLayers...)
}

// Layer returns the layer with the given name.
func (m *Model) Layer(name string) (Layer, error) {
	l, ok := m.layerByName[name]
	if !ok {
		return nil, newError(ErrConfiguration, m.name, "no such layer: %s", name)
	}
	return l, nil
}

// LayerAt returns the layer at position i of Layers.
func (m *Model) LayerAt(i int) (Layer, error) {
	if i < 0 || i >= len(m.graph.Layers) {
		return nil, newError(ErrIndexOutOfRange, m.name,
			"was asked to retrieve layer at index %d but model only has %d layers", i, len(m.graph.Layers))
	}
	return m.graph.Layers[i], nil
}

// nestedLayers lets loss and weight collection recurse into sub-models.
func (m *Model) nestedLayers() []Layer {
	return m.graph.Layers
}

// TrainableWeights returns the trainable weights of all layers, or none if
// the model is frozen.
func (m *Model) TrainableWeights() []*Weight {
	tw, _ := networkWeights(m.trainable, m.graph.Layers)
	return tw
}

// NonTrainableWeights returns the non-trainable weights of all layers, or
// every weight if the model is frozen.
func (m *Model) NonTrainableWeights() []*Weight {
	_, ntw := networkWeights(m.trainable, m.graph.Layers)
	return ntw
}

// Losses returns the losses of the model: those registered on the model
// itself, those of inner layers conditional on nodes inside the model, and
// the unconditional losses of every inner layer.
func (m *Model) Losses() []*tensor.Tensor {
	return collectRecords(m.BaseLayer, m.graph, (*BaseLayer).Losses, (*BaseLayer).GetLossesFor)
}

// Updates returns the updates of the model, collected like Losses.
func (m *Model) Updates() []*tensor.Tensor {
	return collectRecords(m.BaseLayer, m.graph, (*BaseLayer).Updates, (*BaseLayer).GetUpdatesFor)
}

// networkWeights splits the weights of layers, deduplicated, into trainable
// and non-trainable. A frozen owner reports everything as non-trainable.
func networkWeights(trainable bool, layers []Layer) (tw, ntw []*Weight) {
	seen := make(map[*Weight]bool)
	add := func(dst []*Weight, ws []*Weight) []*Weight {
		for _, w := range ws {
			if !seen[w] {
				seen[w] = true
				dst = append(dst, w)
			}
		}
		return dst
	}
	for _, l := range layers {
		if trainable {
			tw = add(tw, l.TrainableWeights())
		} else {
			ntw = add(ntw, l.TrainableWeights())
		}
	}
	for _, l := range layers {
		ntw = add(ntw, l.NonTrainableWeights())
	}
	return tw, ntw
}

type recordsFor func(*BaseLayer, ...*KerasTensor) []*tensor.Tensor

func collectRecords(owner *BaseLayer, g *Graph, own func(*BaseLayer) []*tensor.Tensor, forInputs recordsFor) []*tensor.Tensor {
	out := own(owner)
	if g == nil {
		return out
	}
	for _, l := range g.Layers {
		b := l.Base()
		for _, n := range g.LayerNodes(l) {
			if len(n.inbound) == 0 {
				continue
			}
			out = append(out, forInputs(b, n.inputTensors...)...)
		}
		out = append(out, unconditional(l, forInputs)...)
	}
	return out
}

func unconditional(l Layer, forInputs recordsFor) []*tensor.Tensor {
	out := forInputs(l.Base())
	if nested, ok := l.(interface{ nestedLayers() []Layer }); ok {
		for _, inner := range nested.nestedLayers() {
			out = append(out, unconditional(inner, forInputs)...)
		}
	}
	return out
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	names := make([]string, len(m.graph.Layers))
	for i, l := range m.graph.Layers {
		names[i] = l.Base().name
	}
	return fmt.Sprintf("%s(name=%s, layers=[%s])", m.className, m.name, strings.Join(names, ", "))
}
