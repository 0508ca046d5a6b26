package engine

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// ModelConfig is the serialized form of a functional model.
type ModelConfig struct {
	Name         string          `json:"name" yaml:"name"`
	Layers       []LayerSpec     `json:"layers" yaml:"layers"`
	InputLayers  []TensorRefSpec `json:"input_layers" yaml:"input_layers"`
	OutputLayers []TensorRefSpec `json:"output_layers" yaml:"output_layers"`
}

// LayerSpec describes one layer of a model and the nodes created by calling
// it inside the model, in creation order.
type LayerSpec struct {
	Name         string       `json:"name" yaml:"name"`
	ClassName    string       `json:"class_name" yaml:"class_name"`
	Config       Config       `json:"config" yaml:"config"`
	InboundNodes [][]NodeEdge `json:"inbound_nodes" yaml:"inbound_nodes"`
}

// NodeEdge names the producer of one input of a node. It is encoded as
// [layer_name, node_index, tensor_index, kwargs].
type NodeEdge struct {
	Layer       string
	NodeIndex   int
	TensorIndex int
	Kwargs      Kwargs
}

// MarshalJSON implements json.Marshaler.
func (e NodeEdge) MarshalJSON() ([]byte, error) {
	kwargs := e.Kwargs
	if kwargs == nil {
		kwargs = Kwargs{}
	}
	return json.Marshal([]any{e.Layer, e.NodeIndex, e.TensorIndex, kwargs})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *NodeEdge) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: inbound node edge: %w", ErrSerialization, err)
	}
	if len(raw) != 3 && len(raw) != 4 {
		return fmt.Errorf("%w: inbound node edge must have 3 or 4 elements, got %d", ErrSerialization, len(raw))
	}
	if err := decodeRef(raw[:3], &e.Layer, &e.NodeIndex, &e.TensorIndex); err != nil {
		return err
	}
	e.Kwargs = Kwargs{}
	if len(raw) == 4 {
		if err := json.Unmarshal(raw[3], &e.Kwargs); err != nil {
			return fmt.Errorf("%w: inbound node kwargs: %w", ErrSerialization, err)
		}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e NodeEdge) MarshalYAML() (any, error) {
	kwargs := e.Kwargs
	if kwargs == nil {
		kwargs = Kwargs{}
	}
	return flowSeq(e.Layer, e.NodeIndex, e.TensorIndex, map[string]any(kwargs))
}

// TensorRefSpec names a model input or output. It is encoded as
// [layer_name, node_index, tensor_index].
type TensorRefSpec struct {
	Layer       string
	NodeIndex   int
	TensorIndex int
}

// MarshalJSON implements json.Marshaler.
func (r TensorRefSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Layer, r.NodeIndex, r.TensorIndex})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *TensorRefSpec) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: tensor reference: %w", ErrSerialization, err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("%w: tensor reference must have 3 elements, got %d", ErrSerialization, len(raw))
	}
	return decodeRef(raw, &r.Layer, &r.NodeIndex, &r.TensorIndex)
}

// MarshalYAML implements yaml.Marshaler.
func (r TensorRefSpec) MarshalYAML() (any, error) {
	return flowSeq(r.Layer, r.NodeIndex, r.TensorIndex)
}

func decodeRef(raw []json.RawMessage, name *string, node, slot *int) error {
	if err := json.Unmarshal(raw[0], name); err != nil {
		return fmt.Errorf("%w: layer name: %w", ErrSerialization, err)
	}
	if err := json.Unmarshal(raw[1], node); err != nil {
		return fmt.Errorf("%w: node index: %w", ErrSerialization, err)
	}
	if err := json.Unmarshal(raw[2], slot); err != nil {
		return fmt.Errorf("%w: tensor index: %w", ErrSerialization, err)
	}
	return nil
}

// flowSeq renders a short list on one line: [name, 0, 0].
func flowSeq(items ...any) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, item := range items {
		var child yaml.Node
		if err := child.Encode(item); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &child)
	}
	return n, nil
}

// GetConfig implements Layer. The result holds the layers in topological
// order with their inbound nodes, and the model inputs and outputs.
//
// Node indices are renumbered over the nodes that belong to the model, so a
// layer that was also called outside the model serializes only the calls
// made inside it. Nested models start at 1 because a reconstructed model
// owns node 0.
func (m *Model) GetConfig() Config {
	mc := m.modelConfig()
	return Config{
		"name":          mc.Name,
		"layers":        mc.Layers,
		"input_layers":  mc.InputLayers,
		"output_layers": mc.OutputLayers,
	}
}

func (m *Model) modelConfig() ModelConfig {
	g := m.graph

	renumber := make(map[nodeKey]int)
	for _, l := range g.Layers {
		next := l.Base().reservedNodes
		for _, n := range g.LayerNodes(l) {
			if n.isOrigin() {
				renumber[n.key()] = n.index
				continue
			}
			renumber[n.key()] = next
			next++
		}
	}

	mc := ModelConfig{Name: m.name}
	for _, l := range g.Layers {
		spec := LayerSpec{
			Name:         l.Base().name,
			ClassName:    l.ClassName(),
			Config:       l.GetConfig(),
			InboundNodes: [][]NodeEdge{},
		}
		for _, n := range g.LayerNodes(l) {
			if len(n.inbound) == 0 {
				continue
			}
			edges := make([]NodeEdge, len(n.inbound))
			for i, e := range n.inbound {
				edges[i] = NodeEdge{
					Layer:       e.layer.Base().name,
					NodeIndex:   renumber[nodeKey{layer: e.layer, index: e.nodeIndex}],
					TensorIndex: e.tensorIndex,
					Kwargs:      n.CallKwargs(),
				}
			}
			spec.InboundNodes = append(spec.InboundNodes, edges)
		}
		mc.Layers = append(mc.Layers, spec)
	}

	ref := func(r TensorRef) TensorRefSpec {
		return TensorRefSpec{
			Layer:       r.Layer.Base().name,
			NodeIndex:   renumber[nodeKey{layer: r.Layer, index: r.NodeIndex}],
			TensorIndex: r.TensorIndex,
		}
	}
	for _, r := range g.InputLayers {
		mc.InputLayers = append(mc.InputLayers, ref(r))
	}
	for _, r := range g.OutputLayers {
		mc.OutputLayers = append(mc.OutputLayers, ref(r))
	}
	return mc
}

// DecodeModelConfig converts a generic config (as decoded from JSON or YAML,
// or as returned by GetConfig) into a ModelConfig.
func DecodeModelConfig(cfg Config) (*ModelConfig, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode model config: %w", ErrSerialization, err)
	}
	var mc ModelConfig
	if err := json.Unmarshal(data, &mc); err != nil {
		return nil, fmt.Errorf("%w: decode model config: %w", ErrSerialization, err)
	}
	return &mc, nil
}

// ModelFromConfig reconstructs a model from the output of GetConfig.
//
// Layers are instantiated first, then their nodes are recreated by calling
// each layer on the tensors its records name. A layer whose producers are
// not available yet is revisited on the next pass, so shared layers keep
// their node order. Unknown classes, unknown producer names and records that
// can never be satisfied fail the whole reconstruction.
func ModelFromConfig(cfg Config, ctx *DeserializeContext) (*Model, error) {
	mc, err := DecodeModelConfig(cfg)
	if err != nil {
		return nil, err
	}
	return mc.build(ctx)
}

func (mc *ModelConfig) build(ctx *DeserializeContext) (*Model, error) {
	layers := make(map[string]Layer, len(mc.Layers))
	for _, spec := range mc.Layers {
		if _, dup := layers[spec.Name]; dup {
			return nil, newError(ErrSerialization, spec.Name, "layer name appears twice in the config")
		}
		l, err := deserializeLayer(spec.ClassName, spec.Config, ctx)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", spec.Name, err)
		}
		if got := l.Base().name; got != spec.Name {
			return nil, newError(ErrSerialization, spec.Name, "config produced a layer named %q", got)
		}
		layers[spec.Name] = l
	}

	pending := make(map[string][][]NodeEdge, len(mc.Layers))
	remaining := 0
	for _, spec := range mc.Layers {
		pending[spec.Name] = spec.InboundNodes
		remaining += len(spec.InboundNodes)
	}

	for pass := 1; remaining > 0; pass++ {
		progress := false
		for _, spec := range mc.Layers {
			layer := layers[spec.Name]
			for len(pending[spec.Name]) > 0 {
				edges := pending[spec.Name][0]
				inputs, ready, err := resolveEdges(layers, edges)
				if err != nil {
					return nil, fmt.Errorf("layer %q: %w", spec.Name, err)
				}
				if !ready {
					break
				}
				var kwargs Kwargs
				if len(edges) > 0 && len(edges[0].Kwargs) > 0 {
					kwargs = edges[0].Kwargs
				}
				if _, err := Apply(layer, inputs, kwargs); err != nil {
					return nil, fmt.Errorf("replay %q: %w", spec.Name, err)
				}
				pending[spec.Name] = pending[spec.Name][1:]
				remaining--
				progress = true
			}
		}
		klog.V(2).InfoS("Deserialization pass", "model", mc.Name, "pass", pass, "remaining", remaining)
		if !progress {
			return nil, newError(ErrSerialization, mc.Name,
				"%d node records reference nodes that can never be created", remaining)
		}
	}

	lookup := func(r TensorRefSpec) (*KerasTensor, error) {
		l, ok := layers[r.Layer]
		if !ok {
			return nil, newError(ErrSerialization, mc.Name, "unknown layer %q", r.Layer)
		}
		return outputTensor(l, r.NodeIndex, r.TensorIndex)
	}
	inputs := make([]*KerasTensor, len(mc.InputLayers))
	for i, r := range mc.InputLayers {
		t, err := lookup(r)
		if err != nil {
			return nil, err
		}
		inputs[i] = t
	}
	outputs := make([]*KerasTensor, len(mc.OutputLayers))
	for i, r := range mc.OutputLayers {
		t, err := lookup(r)
		if err != nil {
			return nil, err
		}
		outputs[i] = t
	}

	var opts []Option
	if mc.Name != "" {
		opts = append(opts, WithName(mc.Name))
	}
	return NewModel(inputs, outputs, opts...)
}

// resolveEdges returns the input tensors of one node record, or ready=false
// if a producer has not been called often enough yet.
func resolveEdges(layers map[string]Layer, edges []NodeEdge) ([]*KerasTensor, bool, error) {
	inputs := make([]*KerasTensor, len(edges))
	for i, e := range edges {
		producer, ok := layers[e.Layer]
		if !ok {
			return nil, false, newError(ErrSerialization, e.Layer, "unknown producer layer")
		}
		if e.NodeIndex >= len(producer.Base().inboundNodes) {
			return nil, false, nil
		}
		t, err := outputTensor(producer, e.NodeIndex, e.TensorIndex)
		if err != nil {
			return nil, false, err
		}
		inputs[i] = t
	}
	return inputs, true, nil
}

func outputTensor(l Layer, nodeIndex, tensorIndex int) (*KerasTensor, error) {
	b := l.Base()
	if nodeIndex < 0 || nodeIndex >= len(b.inboundNodes) {
		return nil, newError(ErrSerialization, b.name,
			"node index %d out of range; the layer has %d nodes", nodeIndex, len(b.inboundNodes))
	}
	outs := b.inboundNodes[nodeIndex].outputTensors
	if tensorIndex < 0 || tensorIndex >= len(outs) {
		return nil, newError(ErrSerialization, b.name,
			"tensor index %d out of range; node %d has %d outputs", tensorIndex, nodeIndex, len(outs))
	}
	return outs[tensorIndex], nil
}

func deserializeLayer(className string, cfg Config, ctx *DeserializeContext) (Layer, error) {
	fn, ok := ctx.lookup(className)
	if !ok {
		return nil, newError(ErrUnknownClass, "", "%q is not registered", className)
	}
	if cfg == nil {
		cfg = Config{}
	}
	return fn(cfg, ctx)
}
