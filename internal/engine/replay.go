package engine

import (
	"strings"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Call implements Layer by replaying the graph on inputs. Use Apply to call
// a model; Call alone would leave the model without a node for the call.
func (m *Model) Call(inputs []*KerasTensor, kwargs Kwargs) ([]*tensor.Tensor, error) {
	values, _, err := m.callWithMasks(inputs, kwargs)
	return values, err
}

func (m *Model) callWithMasks(inputs []*KerasTensor, kwargs Kwargs) ([]*tensor.Tensor, []*tensor.Tensor, error) {
	outputs, err := m.replay(inputs, kwargs, m.BaseLayer)
	if err != nil {
		return nil, nil, err
	}
	return tensorValues(outputs), tensorMasks(outputs), nil
}

// replay calls every inner layer along the topological order on tensors
// derived from inputs. Losses and updates the inner layers record for the
// new calls are registered on owner as call records.
func (m *Model) replay(inputs []*KerasTensor, kwargs Kwargs, owner *BaseLayer) ([]*KerasTensor, error) {
	g := m.graph
	if len(inputs) != len(g.Inputs) {
		return nil, newError(ErrIncompatibleInput, owner.name,
			"model expects %d inputs, but it received %d input tensors", len(g.Inputs), len(inputs))
	}

	computed := make(map[*KerasTensor]*KerasTensor, len(g.Nodes))
	for i, x := range g.Inputs {
		computed[x] = inputs[i]
	}

	for _, n := range g.Nodes {
		if n.isOrigin() {
			continue
		}
		ins := make([]*KerasTensor, len(n.inputTensors))
		for i, x := range n.inputTensors {
			y, ok := computed[x]
			if !ok {
				return nil, newError(ErrConnectivity, n.outboundLayer.Base().name,
					"no computed value for input %d while replaying the graph of %s", i, owner.name)
			}
			ins[i] = y
		}

		kw := n.CallKwargs()
		if training, ok := kwargs[TrainingKwarg]; ok && !kw.Has(TrainingKwarg) {
			if kw == nil {
				kw = Kwargs{}
			}
			kw[TrainingKwarg] = training
		}

		layer := n.outboundLayer
		outs, err := Apply(layer, ins, kw)
		if err != nil {
			return nil, err
		}
		for i, x := range n.outputTensors {
			computed[x] = outs[i]
		}

		b := layer.Base()
		for _, l := range b.GetLossesFor(ins...) {
			owner.RegisterCallLoss(l)
		}
		for _, u := range b.GetUpdatesFor(ins...) {
			owner.RegisterCallUpdate(u)
		}
	}

	outputs := make([]*KerasTensor, len(g.Outputs))
	for i, x := range g.Outputs {
		outputs[i] = computed[x]
	}
	return outputs, nil
}

// ComputeOutputShape replays ComputeOutputShape along the topological order,
// substituting inputShapes for the model inputs. Results are cached per
// input shapes.
func (m *Model) ComputeOutputShape(inputShapes []tensor.Shape) ([]tensor.Shape, error) {
	g := m.graph
	if len(inputShapes) != len(g.Inputs) {
		return nil, newError(ErrIncompatibleInput, m.name,
			"invalid input shape: model has %d tensor inputs, got %d shapes", len(g.Inputs), len(inputShapes))
	}

	key := shapesKey(inputShapes)
	if cached, ok := m.shapeCache[key]; ok {
		return cloneShapes(cached), nil
	}

	memo := make(map[nodeKey][]tensor.Shape, len(g.Nodes))
	for i, x := range g.Inputs {
		memo[x.history.key()] = []tensor.Shape{inputShapes[i].Clone()}
	}

	for _, n := range g.Nodes {
		k := n.key()
		if _, done := memo[k]; done || n.isOrigin() {
			continue
		}
		ins := make([]tensor.Shape, len(n.inputTensors))
		for i, x := range n.inputTensors {
			ins[i] = memo[x.history.key()][x.history.tensorIndex]
		}
		outs, err := n.outboundLayer.ComputeOutputShape(ins)
		if err != nil {
			return nil, err
		}
		memo[k] = outs
	}

	result := make([]tensor.Shape, len(g.Outputs))
	for i, x := range g.Outputs {
		result[i] = memo[x.history.key()][x.history.tensorIndex].Clone()
	}
	m.shapeCache[key] = cloneShapes(result)
	return result, nil
}

// ComputeMask replays ComputeMask along the topological order, substituting
// inputs and masks for the model inputs.
func (m *Model) ComputeMask(inputs []*KerasTensor, masks []*tensor.Tensor) ([]*tensor.Tensor, error) {
	g := m.graph
	if len(inputs) != len(g.Inputs) {
		return nil, newError(ErrIncompatibleInput, m.name,
			"model expects %d inputs, but it received %d input tensors", len(g.Inputs), len(inputs))
	}
	if masks == nil {
		masks = make([]*tensor.Tensor, len(inputs))
	}
	if len(masks) != len(inputs) {
		return nil, newError(ErrIncompatibleInput, m.name, "got %d masks for %d inputs", len(masks), len(inputs))
	}

	substitute := make(map[*KerasTensor]*KerasTensor, len(g.Inputs))
	memo := make(map[nodeKey][]*tensor.Tensor, len(g.Nodes))
	for i, x := range g.Inputs {
		substitute[x] = inputs[i]
		memo[x.history.key()] = []*tensor.Tensor{masks[i]}
	}

	for _, n := range g.Nodes {
		k := n.key()
		if _, done := memo[k]; done || n.isOrigin() {
			continue
		}
		ins := make([]*KerasTensor, len(n.inputTensors))
		inMasks := make([]*tensor.Tensor, len(n.inputTensors))
		for i, x := range n.inputTensors {
			ins[i] = x
			if y, ok := substitute[x]; ok {
				ins[i] = y
			}
			inMasks[i] = memo[x.history.key()][x.history.tensorIndex]
		}
		outs, err := n.outboundLayer.ComputeMask(ins, inMasks)
		if err != nil {
			return nil, err
		}
		if outs == nil {
			outs = make([]*tensor.Tensor, len(n.outputTensors))
		}
		memo[k] = outs
	}

	result := make([]*tensor.Tensor, len(g.Outputs))
	for i, x := range g.Outputs {
		if ms := memo[x.history.key()]; x.history.tensorIndex < len(ms) {
			result[i] = ms[x.history.tensorIndex]
		}
	}
	return result, nil
}

func shapesKey(shapes []tensor.Shape) string {
	parts := make([]string, len(shapes))
	for i, s := range shapes {
		parts[i] = s.String()
	}
	return strings.Join(parts, ";")
}
