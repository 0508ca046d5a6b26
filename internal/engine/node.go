package engine

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/Tusespifump1o/keras/internal/tensor"
)

// Kwargs holds the non-tensor keyword arguments of a layer call.
type Kwargs map[string]any

// Has reports whether key is set.
func (k Kwargs) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// nodeSeq orders nodes by creation across all layers.
var nodeSeq atomic.Uint64

// nodeKey identifies a node by its outbound layer and index.
type nodeKey struct {
	layer Layer
	index int
}

// edge points at the producer of one node input.
type edge struct {
	layer       Layer
	nodeIndex   int
	tensorIndex int
}

// Node records one invocation of a layer on a specific set of input tensors.
//
// A node is owned by its outbound layer (the layer that was called) and is
// immutable once created. Input nodes (created by InputLayer) and the node a
// Model creates for itself have no inbound layers.
type Node struct {
	seq           uint64
	outboundLayer Layer
	index         int

	inbound []edge

	inputTensors  []*KerasTensor
	outputTensors []*KerasTensor
	inputShapes   []tensor.Shape
	outputShapes  []tensor.Shape
	inputMasks    []*tensor.Tensor
	outputMasks   []*tensor.Tensor
	callKwargs    Kwargs
}

// newNode creates a node on outbound, appends it to the layer's inbound
// nodes and registers it as an outbound node of every producing layer.
//
// When origin is true the node is the graph-origin node of an input layer
// (or a model's own node) and records no inbound layers.
func newNode(outbound Layer, inputs, outputs []*KerasTensor, kwargs Kwargs, origin bool) *Node {
	base := outbound.Base()
	n := &Node{
		seq:           nodeSeq.Add(1),
		outboundLayer: outbound,
		index:         len(base.inboundNodes),
		inputTensors:  inputs,
		outputTensors: outputs,
		inputShapes:   tensorShapes(inputs),
		outputShapes:  tensorShapes(outputs),
		inputMasks:    tensorMasks(inputs),
		outputMasks:   tensorMasks(outputs),
		callKwargs:    recordableKwargs(kwargs),
	}

	if !origin {
		for _, t := range inputs {
			h := t.History()
			if h.IsOrigin() {
				continue
			}
			n.inbound = append(n.inbound, edge{
				layer:       h.layer,
				nodeIndex:   h.nodeIndex,
				tensorIndex: h.tensorIndex,
			})
		}
	}

	base.inboundNodes = append(base.inboundNodes, n)
	for _, e := range n.inbound {
		producer := e.layer.Base()
		producer.outboundNodes = append(producer.outboundNodes, n)
	}
	return n
}

// detach unlinks the most recent node of its layer from the graph.
func (n *Node) detach() {
	base := n.outboundLayer.Base()
	if k := len(base.inboundNodes); k > 0 && base.inboundNodes[k-1] == n {
		base.inboundNodes = base.inboundNodes[:k-1]
	}
	for _, e := range n.inbound {
		producer := e.layer.Base()
		producer.outboundNodes = slices.DeleteFunc(producer.outboundNodes, func(o *Node) bool { return o == n })
	}
}

// recordableKwargs copies kwargs, dropping tensor arguments.
func recordableKwargs(kwargs Kwargs) Kwargs {
	out := make(Kwargs, len(kwargs))
	for k, v := range kwargs {
		switch v.(type) {
		case *KerasTensor, *tensor.Tensor:
			continue
		}
		out[k] = v
	}
	return out
}

// OutboundLayer returns the layer that was called.
func (n *Node) OutboundLayer() Layer {
	return n.outboundLayer
}

// Index returns the position of the node in its outbound layer.
func (n *Node) Index() int {
	return n.index
}

// InboundLayers returns the producing layer of each input that has one.
func (n *Node) InboundLayers() []Layer {
	out := make([]Layer, len(n.inbound))
	for i, e := range n.inbound {
		out[i] = e.layer
	}
	return out
}

// NodeIndices returns the producing node index of each inbound layer.
func (n *Node) NodeIndices() []int {
	out := make([]int, len(n.inbound))
	for i, e := range n.inbound {
		out[i] = e.nodeIndex
	}
	return out
}

// TensorIndices returns the producing output slot of each inbound layer.
func (n *Node) TensorIndices() []int {
	out := make([]int, len(n.inbound))
	for i, e := range n.inbound {
		out[i] = e.tensorIndex
	}
	return out
}

// InputTensors returns the tensors the layer was called on.
func (n *Node) InputTensors() []*KerasTensor {
	return append([]*KerasTensor(nil), n.inputTensors...)
}

// OutputTensors returns the tensors the call produced.
func (n *Node) OutputTensors() []*KerasTensor {
	return append([]*KerasTensor(nil), n.outputTensors...)
}

// InputShapes returns the static shapes of the inputs.
func (n *Node) InputShapes() []tensor.Shape {
	return cloneShapes(n.inputShapes)
}

// OutputShapes returns the static shapes of the outputs.
func (n *Node) OutputShapes() []tensor.Shape {
	return cloneShapes(n.outputShapes)
}

// InputMasks returns the masks of the inputs (nil entries for no mask).
func (n *Node) InputMasks() []*tensor.Tensor {
	return append([]*tensor.Tensor(nil), n.inputMasks...)
}

// OutputMasks returns the masks of the outputs (nil entries for no mask).
func (n *Node) OutputMasks() []*tensor.Tensor {
	return append([]*tensor.Tensor(nil), n.outputMasks...)
}

// CallKwargs returns the non-tensor call arguments.
func (n *Node) CallKwargs() Kwargs {
	return maps.Clone(n.callKwargs)
}

// isOrigin reports whether the node starts the graph (no inbound layers and
// owned by an input layer).
func (n *Node) isOrigin() bool {
	_, ok := n.outboundLayer.(*InputLayer)
	return ok && len(n.inbound) == 0
}

func (n *Node) key() nodeKey {
	return nodeKey{layer: n.outboundLayer, index: n.index}
}

func cloneShapes(shapes []tensor.Shape) []tensor.Shape {
	out := make([]tensor.Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}
