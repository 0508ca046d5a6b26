package engine

import (
	"container/heap"

	"k8s.io/klog/v2"
)

// TensorRef locates a tensor by the layer, node and output slot that
// produced it.
type TensorRef struct {
	Layer       Layer
	NodeIndex   int
	TensorIndex int
}

func refOf(t *KerasTensor) TensorRef {
	h := t.History()
	return TensorRef{Layer: h.layer, NodeIndex: h.nodeIndex, TensorIndex: h.tensorIndex}
}

// Graph is the resolved subgraph between a set of input and output tensors.
type Graph struct {
	Inputs  []*KerasTensor
	Outputs []*KerasTensor

	// Nodes in topological order. Ties are broken by creation order.
	Nodes []*Node
	// Layers in order of first appearance in Nodes.
	Layers []Layer

	InputLayers  []TensorRef
	OutputLayers []TensorRef

	contains map[nodeKey]bool
}

// Contains reports whether node nodeIndex of layer is part of the graph.
func (g *Graph) Contains(layer Layer, nodeIndex int) bool {
	return g.contains[nodeKey{layer: layer, index: nodeIndex}]
}

// LayerNodes returns the nodes of layer that are part of the graph, in
// node-index order.
func (g *Graph) LayerNodes(layer Layer) []*Node {
	var out []*Node
	for _, n := range layer.Base().inboundNodes {
		if g.contains[n.key()] {
			out = append(out, n)
		}
	}
	return out
}

// ResolveGraph discovers every node needed to compute outputs from inputs and
// orders them topologically.
//
// Outputs must have been produced by layers; listing the same output twice is
// allowed. Inputs must be distinct graph-origin tensors (outputs of an
// InputLayer) and every one of them must be used. Reaching a graph-origin
// tensor that is not a declared input is a connectivity error. When inputs
// is nil the graph-origin tensors found are used as inputs, in discovery
// order.
func ResolveGraph(inputs, outputs []*KerasTensor) (*Graph, error) {
	if len(outputs) == 0 {
		return nil, newError(ErrConnectivity, "", "a graph needs at least one output tensor")
	}
	for i, t := range outputs {
		if t == nil {
			return nil, newError(ErrConnectivity, "", "output %d is not a tensor", i)
		}
		if t.History().IsOrigin() {
			return nil, newError(ErrConnectivity, "",
				"output %d was not produced by a layer; outputs must be the result of calling layers on tensors", i)
		}
	}

	explicit := inputs != nil
	declared := make(map[*KerasTensor]int, len(inputs))
	for i, t := range inputs {
		if t == nil {
			return nil, newError(ErrConnectivity, "", "input %d is not a tensor", i)
		}
		if j, dup := declared[t]; dup {
			return nil, newError(ErrConnectivity, "",
				"the list of inputs passed to the model is redundant: input %d and %d are the same tensor", j, i)
		}
		declared[t] = i
		if !isGraphOrigin(t) {
			return nil, newError(ErrConnectivity, "",
				"input %d (%s) must come from an InputLayer; found provenance %s", i, t, t.History())
		}
	}

	g := &Graph{
		Outputs:  append([]*KerasTensor(nil), outputs...),
		contains: make(map[nodeKey]bool),
	}

	// Backward traversal from the outputs.
	var (
		discovered []*Node
		found      []*KerasTensor
		used       = make(map[*KerasTensor]bool)
	)
	stack := make([]*Node, 0, len(outputs))
	for _, t := range outputs {
		stack = append(stack, t.History().node())
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g.contains[n.key()] {
			continue
		}
		g.contains[n.key()] = true
		discovered = append(discovered, n)

		if n.isOrigin() {
			t := n.outputTensors[0]
			if explicit {
				if _, ok := declared[t]; !ok {
					return nil, newError(ErrConnectivity, n.outboundLayer.Base().name,
						"graph disconnected: cannot obtain value for tensor %s; the following previous layers were accessed without issue: %s",
						t, layerNames(discovered[:len(discovered)-1]))
				}
			} else {
				found = append(found, t)
			}
			used[t] = true
			continue
		}

		for _, x := range n.inputTensors {
			if x.History().IsOrigin() {
				return nil, newError(ErrConnectivity, n.outboundLayer.Base().name,
					"graph disconnected: tensor %s was not produced by a layer; wrap it with an InputLayer and declare it as an input", x)
			}
		}
		for i := len(n.inbound) - 1; i >= 0; i-- {
			e := n.inbound[i]
			stack = append(stack, e.layer.Base().inboundNodes[e.nodeIndex])
		}
	}

	if explicit {
		for i, t := range inputs {
			if !used[t] {
				return nil, newError(ErrConnectivity, t.History().layer.Base().name,
					"graph disconnected: input %d is not connected to any output", i)
			}
		}
		g.Inputs = append([]*KerasTensor(nil), inputs...)
	} else {
		g.Inputs = found
	}

	nodes, err := kahnOrder(discovered, g.contains)
	if err != nil {
		return nil, err
	}
	g.Nodes = nodes

	seen := make(map[Layer]bool)
	for _, n := range nodes {
		if !seen[n.outboundLayer] {
			seen[n.outboundLayer] = true
			g.Layers = append(g.Layers, n.outboundLayer)
		}
	}
	for _, t := range g.Inputs {
		g.InputLayers = append(g.InputLayers, refOf(t))
	}
	for _, t := range g.Outputs {
		g.OutputLayers = append(g.OutputLayers, refOf(t))
	}

	klog.V(4).InfoS("Resolved graph", "inputs", len(g.Inputs), "outputs", len(g.Outputs), "nodes", len(g.Nodes), "layers", len(g.Layers))
	return g, nil
}

// isGraphOrigin reports whether t is the tensor of an InputLayer's node 0.
func isGraphOrigin(t *KerasTensor) bool {
	h := t.History()
	if h.IsOrigin() || h.nodeIndex != 0 || h.tensorIndex != 0 {
		return false
	}
	return h.node().isOrigin()
}

// kahnOrder sorts nodes so that every producer precedes its consumers,
// picking the earliest-created ready node first.
func kahnOrder(nodes []*Node, contains map[nodeKey]bool) ([]*Node, error) {
	indegree := make(map[*Node]int, len(nodes))
	consumers := make(map[*Node][]*Node, len(nodes))
	for _, n := range nodes {
		deps := make(map[*Node]bool)
		for _, e := range n.inbound {
			if !contains[nodeKey{layer: e.layer, index: e.nodeIndex}] {
				continue
			}
			p := e.layer.Base().inboundNodes[e.nodeIndex]
			if deps[p] {
				continue
			}
			deps[p] = true
			consumers[p] = append(consumers[p], n)
		}
		indegree[n] = len(deps)
	}

	ready := &nodeHeap{}
	for _, n := range nodes {
		if indegree[n] == 0 {
			heap.Push(ready, n)
		}
	}

	order := make([]*Node, 0, len(nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		order = append(order, n)
		for _, c := range consumers[n] {
			indegree[c]--
			if indegree[c] == 0 {
				heap.Push(ready, c)
			}
		}
	}
	if len(order) != len(nodes) {
		return nil, newError(ErrConnectivity, "", "graph contains a cycle")
	}
	return order, nil
}

type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].seq < h[j].seq }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(*Node))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

func layerNames(nodes []*Node) []string {
	var names []string
	seen := make(map[Layer]bool)
	for _, n := range nodes {
		if seen[n.outboundLayer] {
			continue
		}
		seen[n.outboundLayer] = true
		names = append(names, n.outboundLayer.Base().name)
	}
	return names
}

// SourceInputs returns the graph-origin tensors t depends on, in discovery
// order. A tensor with no provenance is its own source.
func SourceInputs(t *KerasTensor) []*KerasTensor {
	if t.History().IsOrigin() {
		return []*KerasTensor{t}
	}
	var (
		out   []*KerasTensor
		seen  = make(map[*KerasTensor]bool)
		visit = make(map[*Node]bool)
		walk  func(n *Node)
	)
	walk = func(n *Node) {
		if visit[n] {
			return
		}
		visit[n] = true
		if len(n.inbound) == 0 {
			for _, x := range n.inputTensors {
				if !seen[x] {
					seen[x] = true
					out = append(out, x)
				}
			}
			return
		}
		for _, x := range n.inputTensors {
			if x.History().IsOrigin() {
				if !seen[x] {
					seen[x] = true
					out = append(out, x)
				}
				continue
			}
			walk(x.History().node())
		}
	}
	walk(t.History().node())
	return out
}
