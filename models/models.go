// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models is the public API for building, inspecting and serializing
// layer graphs.
//
// Graphs are built by applying layers to symbolic tensors, starting from
// Input. A Model wraps the graph between some inputs and outputs and is itself
// a layer, so models nest. Models and Sequential stacks serialize to JSON or
// YAML and reload through the class registry.
//
// Example:
//
//	backend := symbolic.New()
//	x, _ := models.Input(backend, models.WithInputShape(784))
//	dense, _ := layers.NewDense(backend, layers.DenseConfig{Units: 10, Activation: "softmax"})
//	y, _ := models.ApplyOne(dense, x)
//	m, _ := models.NewModel([]*models.KerasTensor{x}, []*models.KerasTensor{y})
//	data, _ := m.ToJSON()
package models

import (
	"io"

	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/tensor"
)

// Core types.
type (
	// Layer is the capability interface of every graph unit.
	Layer = engine.Layer
	// BaseLayer holds the state shared by all layers; custom layers embed it.
	BaseLayer = engine.BaseLayer
	// KerasTensor is a backend tensor with provenance, static shape and mask.
	KerasTensor = engine.KerasTensor
	// Provenance records the layer call that produced a tensor.
	Provenance = engine.Provenance
	// Node is one call of a layer.
	Node = engine.Node
	// Model is a graph of layers between inputs and outputs.
	Model = engine.Model
	// Sequential is a linear stack of layers.
	Sequential = engine.Sequential
	// Network is a Model or a Sequential.
	Network = engine.Network
	// Graph is a resolved, topologically ordered layer graph.
	Graph = engine.Graph
	// InputLayer is the entry point of a graph.
	InputLayer = engine.InputLayer
	// InputSpec constrains the inputs of a layer.
	InputSpec = engine.InputSpec
	// Weight is a named layer variable.
	Weight = engine.Weight
	// Option configures the common state of a layer.
	Option = engine.Option
	// Kwargs are extra call arguments recorded on a node.
	Kwargs = engine.Kwargs
	// Config is the serialized constructor arguments of a layer.
	Config = engine.Config
	// Envelope is the serialized form {class_name, config}.
	Envelope = engine.Envelope
	// FromConfigFunc reconstructs a layer from its config.
	FromConfigFunc = engine.FromConfigFunc
	// DeserializeContext carries the backend and custom classes used when
	// reloading.
	DeserializeContext = engine.DeserializeContext
	// GraphError is the structured error returned by graph operations.
	GraphError = engine.GraphError
)

// Error kinds, usable with errors.Is.
var (
	ErrConfiguration      = engine.ErrConfiguration
	ErrConnectivity       = engine.ErrConnectivity
	ErrAmbiguous          = engine.ErrAmbiguous
	ErrMaskingUnsupported = engine.ErrMaskingUnsupported
	ErrSerialization      = engine.ErrSerialization
	ErrIndexOutOfRange    = engine.ErrIndexOutOfRange
	ErrIncompatibleInput  = engine.ErrIncompatibleInput
	ErrUnknownClass       = engine.ErrUnknownClass
)

// TrainingKwarg fixes the learning phase of one call.
const TrainingKwarg = engine.TrainingKwarg

// Version is written into serialized models.
const Version = engine.Version

// Options.
var (
	WithName            = engine.WithName
	WithTrainable       = engine.WithTrainable
	WithDType           = engine.WithDType
	WithInputShape      = engine.WithInputShape
	WithBatchInputShape = engine.WithBatchInputShape
	WithBatchSize       = engine.WithBatchSize
	WithInputTensor     = engine.WithInputTensor
	WithSparse          = engine.WithSparse
)

// Input creates a graph input tensor.
func Input(backend tensor.Backend, opts ...Option) (*KerasTensor, error) {
	return engine.Input(backend, opts...)
}

// Apply calls a layer on inputs, recording a node.
func Apply(layer Layer, inputs []*KerasTensor, kwargs Kwargs) ([]*KerasTensor, error) {
	return engine.Apply(layer, inputs, kwargs)
}

// ApplyOne calls a single-input, single-output layer.
func ApplyOne(layer Layer, x *KerasTensor) (*KerasTensor, error) {
	return engine.ApplyOne(layer, x)
}

// NewModel builds a Model between inputs and outputs.
func NewModel(inputs, outputs []*KerasTensor, opts ...Option) (*Model, error) {
	return engine.NewModel(inputs, outputs, opts...)
}

// NewSequential builds a Sequential stack.
func NewSequential(layers []Layer, opts ...Option) (*Sequential, error) {
	return engine.NewSequential(layers, opts...)
}

// ResolveGraph orders the layer calls between inputs and outputs.
func ResolveGraph(inputs, outputs []*KerasTensor) (*Graph, error) {
	return engine.ResolveGraph(inputs, outputs)
}

// SourceInputs returns the graph inputs a tensor depends on.
func SourceInputs(t *KerasTensor) []*KerasTensor {
	return engine.SourceInputs(t)
}

// CountParams returns the number of scalars in the weights of l.
func CountParams(l Layer) int {
	return engine.CountParams(l)
}

// Summary writes a table of the layers of n.
func Summary(w io.Writer, n Network) error {
	return engine.Summary(w, n)
}

// Register adds a layer class to the registry used when reloading.
func Register(className string, fn FromConfigFunc) {
	engine.Register(className, fn)
}

// NewDeserializeContext creates a context reloading onto backend.
func NewDeserializeContext(backend tensor.Backend) *DeserializeContext {
	return engine.NewDeserializeContext(backend)
}

// Serialize returns the envelope of a layer.
func Serialize(l Layer) Envelope {
	return engine.Serialize(l)
}

// Deserialize reconstructs a layer from its envelope.
func Deserialize(env Envelope, ctx *DeserializeContext) (Layer, error) {
	return engine.Deserialize(env, ctx)
}

// FromJSON reloads a Model or Sequential from JSON.
func FromJSON(data []byte, ctx *DeserializeContext) (Network, error) {
	return engine.ModelFromJSON(data, ctx)
}

// FromYAML reloads a Model or Sequential from YAML.
func FromYAML(data []byte, ctx *DeserializeContext) (Network, error) {
	return engine.ModelFromYAML(data, ctx)
}

// Read reloads a model from r in the given format ("json" or "yaml").
func Read(r io.Reader, format string, ctx *DeserializeContext) (Network, error) {
	return engine.ReadModel(r, format, ctx)
}
