// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides the public constructors of the built-in layers.
//
// Example:
//
//	backend := symbolic.New()
//	conv, _ := layers.NewConv2D(backend, layers.Conv2DConfig{Filters: 32, KernelSize: [2]int{3, 3}},
//	    models.WithInputShape(28, 28, 1))
//	pool, _ := layers.NewMaxPooling2D(backend, layers.MaxPooling2DConfig{})
//	seq, _ := models.NewSequential([]models.Layer{conv, pool})
package layers

import (
	"github.com/Tusespifump1o/keras/internal/engine"
	"github.com/Tusespifump1o/keras/internal/layers"
	"github.com/Tusespifump1o/keras/tensor"
)

// Layer types.
type (
	Dense                  = layers.Dense
	DenseConfig            = layers.DenseConfig
	Activation             = layers.Activation
	Dropout                = layers.Dropout
	ActivityRegularization = layers.ActivityRegularization
	Masking                = layers.Masking
	Embedding              = layers.Embedding
	EmbeddingConfig        = layers.EmbeddingConfig
	Flatten                = layers.Flatten
	Reshape                = layers.Reshape
	RepeatVector           = layers.RepeatVector
	Merge                  = layers.Merge
	Concatenate            = layers.Concatenate
	Conv2D                 = layers.Conv2D
	Conv2DConfig           = layers.Conv2DConfig
	MaxPooling2D           = layers.MaxPooling2D
	MaxPooling2DConfig     = layers.MaxPooling2DConfig
	LayerNormalization     = layers.LayerNormalization
)

// Image data formats and padding modes.
const (
	ChannelsLast  = layers.ChannelsLast
	ChannelsFirst = layers.ChannelsFirst
	PaddingValid  = layers.PaddingValid
	PaddingSame   = layers.PaddingSame
)

// Activations returns the supported activation names.
func Activations() []string { return layers.Activations() }

// NewDense creates a fully connected layer.
func NewDense(backend tensor.Backend, cfg DenseConfig, opts ...engine.Option) (*Dense, error) {
	return layers.NewDense(backend, cfg, opts...)
}

// NewActivation creates an elementwise activation layer.
func NewActivation(backend tensor.Backend, activation string, opts ...engine.Option) (*Activation, error) {
	return layers.NewActivation(backend, activation, opts...)
}

// NewDropout creates a dropout layer.
func NewDropout(backend tensor.Backend, rate float64, opts ...engine.Option) (*Dropout, error) {
	return layers.NewDropout(backend, rate, opts...)
}

// NewActivityRegularization creates an activity regularization layer.
func NewActivityRegularization(backend tensor.Backend, l1, l2 float64, opts ...engine.Option) (*ActivityRegularization, error) {
	return layers.NewActivityRegularization(backend, l1, l2, opts...)
}

// NewMasking creates a masking layer.
func NewMasking(backend tensor.Backend, maskValue float64, opts ...engine.Option) (*Masking, error) {
	return layers.NewMasking(backend, maskValue, opts...)
}

// NewEmbedding creates an embedding layer.
func NewEmbedding(backend tensor.Backend, cfg EmbeddingConfig, opts ...engine.Option) (*Embedding, error) {
	return layers.NewEmbedding(backend, cfg, opts...)
}

// NewFlatten creates a flatten layer.
func NewFlatten(backend tensor.Backend, opts ...engine.Option) (*Flatten, error) {
	return layers.NewFlatten(backend, opts...)
}

// NewReshape creates a reshape layer.
func NewReshape(backend tensor.Backend, target tensor.Shape, opts ...engine.Option) (*Reshape, error) {
	return layers.NewReshape(backend, target, opts...)
}

// NewRepeatVector creates a repeat layer.
func NewRepeatVector(backend tensor.Backend, n int, opts ...engine.Option) (*RepeatVector, error) {
	return layers.NewRepeatVector(backend, n, opts...)
}

// NewConcatenate creates a concatenation layer.
func NewConcatenate(backend tensor.Backend, axis int, opts ...engine.Option) (*Concatenate, error) {
	return layers.NewConcatenate(backend, axis, opts...)
}

// Merge layers.
var (
	NewAdd      = layers.NewAdd
	NewSubtract = layers.NewSubtract
	NewMultiply = layers.NewMultiply
	NewAverage  = layers.NewAverage
	NewMaximum  = layers.NewMaximum
	NewMinimum  = layers.NewMinimum
)

// NewConv2D creates a 2D convolution layer.
func NewConv2D(backend tensor.Backend, cfg Conv2DConfig, opts ...engine.Option) (*Conv2D, error) {
	return layers.NewConv2D(backend, cfg, opts...)
}

// NewMaxPooling2D creates a 2D max pooling layer.
func NewMaxPooling2D(backend tensor.Backend, cfg MaxPooling2DConfig, opts ...engine.Option) (*MaxPooling2D, error) {
	return layers.NewMaxPooling2D(backend, cfg, opts...)
}

// NewLayerNormalization creates a layer normalization layer.
func NewLayerNormalization(backend tensor.Backend, epsilon float64, opts ...engine.Option) (*LayerNormalization, error) {
	return layers.NewLayerNormalization(backend, epsilon, opts...)
}
