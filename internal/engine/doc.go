// Package engine implements the layer-graph construction engine: tensor
// provenance, nodes, the layer call protocol, graph resolution, models built
// from input and output tensors, and the serialized model format.
//
// Calling a layer on tensors (Apply) is the only way a Node is created. Every
// output tensor records where it came from:
//
//	x, _ := engine.Input(backend, engine.WithInputShape(32))
//	h, _ := engine.ApplyOne(dense, x)   // h.History() == (dense, 0, 0)
//	y, _ := engine.ApplyOne(dense, h)   // shared layer: node 1
//
// A Model is resolved from declared inputs and outputs by walking this
// provenance backward:
//
//	model, err := engine.NewModel([]*engine.KerasTensor{x}, []*engine.KerasTensor{y})
//
// and round-trips through a flat config:
//
//	cfg := model.GetConfig()
//	clone, err := engine.ModelFromConfig(cfg, engine.NewDeserializeContext(backend))
//
// Nodes are append-only: calling a layer (or a model) again adds nodes, it
// never rewrites existing ones. Models reference the nodes that were present
// when they were constructed.
package engine
